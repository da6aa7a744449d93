package routes

import (
	"log"
	"net/http"
	"strconv"

	"whoami/handlers"
	"whoami/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	gameHandler *handlers.GameHandler,
	hub *services.Hub,
	gameService *services.GameService,
) {
	api := router.Group("/api")
	{
		sessions := api.Group("/sessions")
		{
			sessions.POST("", gameHandler.StartSession)
			sessions.GET("/:id", gameHandler.GetSession)
			sessions.POST("/:id/questions", gameHandler.SubmitQuestion)
			sessions.POST("/:id/votes", gameHandler.SubmitVote)
			sessions.POST("/:id/leave", gameHandler.Leave)
			sessions.GET("/:id/history/:participantID", gameHandler.History)
		}

		api.GET("/stats", gameHandler.Stats)
	}

	// WebSocket endpoint for real-time game communication
	router.GET("/ws/:sessionID/:participantID", func(c *gin.Context) {
		sessionID, err := strconv.ParseUint(c.Param("sessionID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
			return
		}
		participantID, err := strconv.ParseInt(c.Param("participantID"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID"})
			return
		}

		if !gameService.IsParticipant(uint(sessionID), participantID) {
			log.Printf("Participant %d is not in session %d, refusing socket", participantID, sessionID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Participant not found in session"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for session %d, participant %d: %v", sessionID, participantID, err)
			return
		}

		name := c.Query("name")
		if name == "" {
			name = gameService.DisplayName(c.Request.Context(), participantID)
		}

		log.Printf("WebSocket connection established for session %d, participant %d (%s)", sessionID, participantID, name)
		hub.RegisterClient(conn, uint(sessionID), participantID, name)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

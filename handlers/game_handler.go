package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"whoami/game"
	"whoami/services"

	"github.com/gin-gonic/gin"
)

type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{
		gameService: gameService,
	}
}

func (h *GameHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.gameService.StartSession(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, outcomeBody(out))
}

func (h *GameHandler) GetSession(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var viewer int64
	if v := c.Query("viewer"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid viewer"})
			return
		}
		viewer = parsed
	}

	snap, err := h.gameService.State(c.Request.Context(), sessionID, viewer)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *GameHandler) SubmitQuestion(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req services.SubmitQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.gameService.SubmitQuestion(c.Request.Context(), sessionID, req.ParticipantID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcomeBody(out))
}

func (h *GameHandler) SubmitVote(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req services.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	yes, err := services.ParseBallot(req.Vote)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.gameService.SubmitVote(c.Request.Context(), sessionID, req.VoterID, yes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcomeBody(out))
}

func (h *GameHandler) Leave(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req services.LeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.gameService.Leave(c.Request.Context(), sessionID, req.ParticipantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, outcomeBody(out))
}

func (h *GameHandler) History(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	participantID, err := strconv.ParseInt(c.Param("participantID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid participant ID"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	rows, err := h.gameService.History(sessionID, participantID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"questions": rows})
}

func (h *GameHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.gameService.Stats())
}

func sessionParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return 0, false
	}
	return uint(id), true
}

func outcomeBody(out *game.Outcome) gin.H {
	body := gin.H{
		"session_id": out.SessionID,
		"status":     out.Status,
		"finished":   out.Finished,
	}
	if out.HasActor {
		body["next_actor_id"] = out.NextActorID
	}
	if out.Finished {
		body["winner_id"] = out.WinnerID
	}
	return body
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), services.ErrorBody(err))
}

func statusFor(err error) int {
	var gameErr *game.Error
	if errors.As(err, &gameErr) {
		switch gameErr.Kind {
		case game.KindSessionNotFound:
			return http.StatusNotFound
		case game.KindNotInSession, game.KindSelfVote:
			return http.StatusForbidden
		case game.KindNotYourTurn, game.KindNoActiveSession, game.KindNoActiveVote,
			game.KindVoteInProgress, game.KindSessionExists:
			return http.StatusConflict
		case game.KindInvalidQuestion:
			return http.StatusBadRequest
		case game.KindConfigurationError:
			return http.StatusUnprocessableEntity
		}
	}
	switch {
	case errors.Is(err, services.ErrLobbyNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidBallot):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

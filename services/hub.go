package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"whoami/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// MessageHandler runs the game commands that arrive over a socket.
type MessageHandler interface {
	SubmitQuestion(ctx context.Context, sessionID uint, participantID int64, text string) (*game.Outcome, error)
	SubmitVote(ctx context.Context, sessionID uint, voterID int64, yes bool) (*game.Outcome, error)
	Leave(ctx context.Context, sessionID uint, participantID int64) (*game.Outcome, error)
	State(ctx context.Context, sessionID uint, viewer int64) (*game.Snapshot, error)
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	handler    MessageHandler
}

type Client struct {
	hub           *Hub
	id            string
	socket        *websocket.Conn
	send          chan []byte
	sessionID     uint
	participantID int64
	name          string
}

type Message struct {
	Type    string           `json:"type"`
	Payload interface{}      `json:"payload"`
	Names   map[int64]string `json:"names,omitempty"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type askPayload struct {
	Text string `json:"text"`
}

type votePayload struct {
	Vote string `json:"vote"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// SetHandler wires inbound socket commands to the session service.
func (h *Hub) SetHandler(handler MessageHandler) {
	h.mutex.Lock()
	h.handler = handler
	h.mutex.Unlock()
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			log.Printf("Client registered: %s for session %d (participant %d: %s) - Total clients: %d", client.id, client.sessionID, client.participantID, client.name, total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Printf("Client unregistered: %s for session %d (participant %d) - Total clients: %d", client.id, client.sessionID, client.participantID, len(h.clients))
			}
			h.mutex.Unlock()
		}
	}
}

// Dispatch delivers every intent to the sockets of its recipients and returns
// the number of messages handed to a socket. A recipient that cannot be reached
// is logged and skipped; the other deliveries still happen. names labels the
// participants an intent mentions.
func (h *Hub) Dispatch(intents []game.Intent, names map[int64]string) int {
	delivered := 0
	for _, intent := range intents {
		msg := Message{Type: string(intent.Kind()), Payload: intent}
		if len(names) > 0 {
			msg.Names = make(map[int64]string)
			for _, id := range MentionedIDs(intent) {
				if name, ok := names[id]; ok {
					msg.Names[id] = name
				}
			}
		}
		data, err := json.Marshal(msg)
		if err != nil {
			log.Printf("Error marshaling %s message: %v", intent.Kind(), err)
			continue
		}
		for _, recipient := range intent.Audience() {
			if game.KindForID(recipient) == game.KindAutomated {
				continue
			}
			if h.sendTo(intent.Session(), recipient, data) == 0 {
				log.Printf("Could not deliver %s to participant %d in session %d: not connected", intent.Kind(), recipient, intent.Session())
				continue
			}
			delivered++
		}
	}
	return delivered
}

// sendTo writes data to every socket the participant has open in the session.
func (h *Hub) sendTo(sessionID uint, participantID int64, data []byte) int {
	var stale []*Client
	sent := 0

	h.mutex.RLock()
	for client := range h.clients {
		if client.sessionID != sessionID || client.participantID != participantID {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			log.Printf("Client %s (participant %d) send buffer full, closing connection", client.id, client.participantID)
			stale = append(stale, client)
		}
	}
	h.mutex.RUnlock()

	if len(stale) > 0 {
		h.drop(stale...)
	}
	return sent
}

func (h *Hub) drop(clients ...*Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, client := range clients {
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ConnectedParticipants lists participants with an open socket in the session.
func (h *Hub) ConnectedParticipants(sessionID uint) []int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	seen := make(map[int64]bool)
	var ids []int64
	for client := range h.clients {
		if client.sessionID == sessionID && !seen[client.participantID] {
			seen[client.participantID] = true
			ids = append(ids, client.participantID)
		}
	}
	return ids
}

func (h *Hub) RegisterClient(conn *websocket.Conn, sessionID uint, participantID int64, name string) *Client {
	client := newClient(h, conn, sessionID, participantID, name)

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

func newClient(h *Hub, conn *websocket.Conn, sessionID uint, participantID int64, name string) *Client {
	return &Client{
		hub:           h,
		id:            "client_" + uuid.New().String(),
		socket:        conn,
		send:          make(chan []byte, 256),
		sessionID:     sessionID,
		participantID: participantID,
		name:          name,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.handleMessage(context.Background(), msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}

		w.Write(message)

		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *Client) handleMessage(ctx context.Context, msg inboundMessage) {
	c.hub.mutex.RLock()
	handler := c.hub.handler
	c.hub.mutex.RUnlock()

	switch msg.Type {
	case "ping":
		c.reply("pong", "pong")

	case "ask":
		var p askPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.replyError(err)
			return
		}
		if handler == nil {
			return
		}
		if _, err := handler.SubmitQuestion(ctx, c.sessionID, c.participantID, p.Text); err != nil {
			c.replyError(err)
		}

	case "vote":
		var p votePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.replyError(err)
			return
		}
		yes, err := ParseBallot(p.Vote)
		if err != nil {
			c.replyError(err)
			return
		}
		if handler == nil {
			return
		}
		if _, err := handler.SubmitVote(ctx, c.sessionID, c.participantID, yes); err != nil {
			c.replyError(err)
		}

	case "leave":
		log.Printf("Participant %d (%s) left session %d via WebSocket", c.participantID, c.name, c.sessionID)
		if handler == nil {
			return
		}
		if _, err := handler.Leave(ctx, c.sessionID, c.participantID); err != nil {
			c.replyError(err)
		}

	case "request_state":
		if handler == nil {
			return
		}
		snap, err := handler.State(ctx, c.sessionID, c.participantID)
		if err != nil {
			c.replyError(err)
			return
		}
		c.reply("state", snap)

	default:
		log.Printf("Unknown message type: %s from participant %d in session %d", msg.Type, c.participantID, c.sessionID)
	}
}

func (c *Client) reply(messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s reply: %v", messageType, err)
		return
	}
	// send is closed under the write lock once the client is dropped
	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Client %s send buffer full, dropping %s", c.id, messageType)
	}
}

func (c *Client) replyError(err error) {
	c.reply("error", ErrorBody(err))
}

// ParseBallot accepts "yes" or "no" in any case.
func ParseBallot(vote string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(vote)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	}
	return false, ErrInvalidBallot
}

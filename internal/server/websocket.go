// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     server
// Description: WebSocket endpoint for real-time voice command exchange
// License:     MIT
// ============================================================================

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/assistant"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

const wsReadTimeout = 120 * time.Second

// WebSocket upgrader with permissive settings for local development
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSMessage is an inbound WebSocket envelope
type WSMessage struct {
	Type    string          `json:"type"`    // "command", "status", "ping"
	Payload json.RawMessage `json:"payload"` // Message-specific payload
}

// WSCommandPayload carries a transcribed command
type WSCommandPayload struct {
	Command string `json:"command"`
	UserID  string `json:"user_id,omitempty"`
}

// WSStatusPayload reports client state, e.g. "listening"
type WSStatusPayload struct {
	Status string `json:"status"`
}

// WSResponse is an outbound WebSocket envelope
type WSResponse struct {
	Type    string      `json:"type"`    // "command_response", "status", "error", "pong"
	Payload interface{} `json:"payload"` // Response-specific payload
}

// WSErrorPayload is an error payload
type WSErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsClient is one connected WebSocket client. The write mutex keeps
// concurrent replies from interleaving on the wire; command replies are
// written from processing goroutines while the read loop keeps running.
type wsClient struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) send(resp WSResponse) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(resp)
}

// WebSocketHandler handles WebSocket connections for real-time voice commands
type WebSocketHandler struct {
	svc    *assistant.Service
	logger *logging.Logger

	mu      sync.Mutex
	clients map[string]*wsClient
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(svc *assistant.Service) *WebSocketHandler {
	return &WebSocketHandler{
		svc:     svc,
		logger:  logging.New("websocket"),
		clients: make(map[string]*wsClient),
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll closes every connected client
func (h *WebSocketHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.conn.Close()
		delete(h.clients, id)
	}
}

func (h *WebSocketHandler) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.clients[c.id]; ok {
		prev.conn.Close()
	}
	h.clients[c.id] = c
}

func (h *WebSocketHandler) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
}

// ServeHTTP handles WebSocket upgrade and connections
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := &wsClient{id: clientID, conn: conn}
	h.register(client)
	defer h.unregister(client)

	h.handleConnection(client)
}

// handleConnection runs the read loop for a single client
func (h *WebSocketHandler) handleConnection(c *wsClient) {
	defer c.conn.Close()

	h.logger.Info("WebSocket connection established", "client", c.id, "remote", c.conn.RemoteAddr().String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error", "client", c.id, "error", err)
			} else {
				h.logger.Info("WebSocket connection closed", "client", c.id)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		switch msg.Type {
		case "ping":
			h.send(c, WSResponse{Type: "pong", Payload: nil})

		case "status":
			var payload WSStatusPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendError(c, "invalid_payload", "Invalid status payload")
				continue
			}
			if payload.Status == "listening" {
				h.send(c, WSResponse{Type: "status", Payload: WSStatusPayload{Status: "ready"}})
			}

		case "command":
			var payload WSCommandPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				h.sendError(c, "invalid_payload", "Invalid command payload")
				continue
			}
			// Commands run in their own goroutine so a slow model
			// reply never stalls the read loop.
			go h.handleCommand(ctx, c, payload)

		default:
			h.sendError(c, "unknown_type", "Unknown message type: "+msg.Type)
		}
	}
}

// handleCommand processes a command and writes the reply back
func (h *WebSocketHandler) handleCommand(ctx context.Context, c *wsClient, payload WSCommandPayload) {
	resp, err := h.svc.Process(ctx, payload.UserID, payload.Command)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrRateLimited):
			h.sendError(c, "rate_limited", "Too many requests, please slow down.")
		case errors.Is(err, assistant.ErrCommandTooLong):
			h.sendError(c, "invalid_request", "Command too long")
		default:
			h.logger.Error("Command processing failed", "client", c.id, "error", err)
			h.sendError(c, "internal_error", "Failed to process command")
		}
		return
	}

	h.send(c, WSResponse{
		Type: "command_response",
		Payload: CommandResponse{
			Response: resp.Response,
			Action:   resp.Action,
			Data:     resp.Data,
		},
	})
}

func (h *WebSocketHandler) send(c *wsClient, resp WSResponse) {
	if err := c.send(resp); err != nil {
		h.logger.Error("WebSocket send error", "client", c.id, "error", err)
	}
}

func (h *WebSocketHandler) sendError(c *wsClient, code, message string) {
	h.send(c, WSResponse{
		Type: "error",
		Payload: WSErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     server
// Description: REST API handler for command processing, history,
//              settings, conversations and health
// License:     MIT
// ============================================================================

package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/assistant"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/config"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/store"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/health"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

// CommandRequest is the body of POST /api/v1/command
type CommandRequest struct {
	Command string `json:"command"`
	UserID  string `json:"user_id,omitempty"`
}

// CommandResponse is the reply to a processed command
type CommandResponse struct {
	Response string            `json:"response"`
	Action   string            `json:"action,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// HistoryEntry is one command history record on the wire
type HistoryEntry struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Result    string    `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryResponse wraps a user's command history
type HistoryResponse struct {
	UserID  string         `json:"user_id"`
	History []HistoryEntry `json:"history"`
}

// SettingsRequest is the body of PUT /api/v1/settings/{user}
type SettingsRequest struct {
	Voice      *string `json:"voice,omitempty"`
	VoiceSpeed *int    `json:"voice_speed,omitempty"`
	Theme      *string `json:"theme,omitempty"`
}

// SettingsResponse is a user's settings on the wire
type SettingsResponse struct {
	UserID     string `json:"user_id"`
	Voice      string `json:"voice"`
	VoiceSpeed int    `json:"voice_speed"`
	Theme      string `json:"theme"`
}

// ConversationMessage is one stored message on the wire
type ConversationMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationsResponse wraps a user's recent conversation messages
type ConversationsResponse struct {
	UserID   string                `json:"user_id"`
	Messages []ConversationMessage `json:"messages"`
}

// ModelsResponse lists available models across providers
type ModelsResponse struct {
	Models []ModelEntry `json:"models"`
}

// ModelEntry is one model on the wire
type ModelEntry struct {
	Name     string `json:"name"`
	Family   string `json:"family,omitempty"`
	Provider string `json:"provider"`
}

// HealthResponse is the aggregated health report
type HealthResponse struct {
	Status  string                `json:"status"`
	Service string                `json:"service"`
	Version string                `json:"version"`
	Uptime  string                `json:"uptime"`
	Checks  map[string]checkEntry `json:"checks"`
}

type checkEntry struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the error envelope for all endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Handler routes REST API requests
type Handler struct {
	version string
	svc     *assistant.Service
	health  *health.Registry
	cors    config.CORSConfig
	logger  *logging.Logger
}

// NewHandler creates the REST API handler
func NewHandler(version string, svc *assistant.Service, registry *health.Registry, cors config.CORSConfig) *Handler {
	if cors.Enabled && len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if cors.Enabled && len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	return &Handler{
		version: version,
		svc:     svc,
		health:  registry,
		cors:    cors,
		logger:  logging.New("handler"),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cors.Enabled {
		w.Header().Set("Access-Control-Allow-Origin", strings.Join(h.cors.AllowedOrigins, ", "))
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(h.cors.AllowedMethods, ", "))
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")

	switch {
	case path == "" && r.URL.Path == "/":
		h.handleRoot(w, r)
	case path == "health":
		h.handleHealth(w, r)
	case path == "command":
		h.handleCommand(w, r)
	case strings.HasPrefix(path, "history/"):
		h.handleHistory(w, r, strings.TrimPrefix(path, "history/"))
	case strings.HasPrefix(path, "settings/"):
		h.handleSettings(w, r, strings.TrimPrefix(path, "settings/"))
	case strings.HasPrefix(path, "conversations/"):
		h.handleConversations(w, r, strings.TrimPrefix(path, "conversations/"))
	case path == "models":
		h.handleModels(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// handleRoot reports service info and the endpoint inventory
func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	info := map[string]interface{}{
		"service":     "ballsy",
		"description": "Ballsy Voice Assistant API",
		"version":     h.version,
		"providers":   h.svc.Providers(),
		"endpoints": map[string]string{
			"GET /":                               "Service information",
			"GET /api/v1/health":                  "Health check",
			"POST /api/v1/command":                "Process a voice command",
			"GET /api/v1/history/{user}":          "Command history",
			"GET /api/v1/settings/{user}":         "User settings",
			"PUT /api/v1/settings/{user}":         "Update user settings",
			"GET /api/v1/conversations/{user}":    "Recent conversation messages",
			"DELETE /api/v1/conversations/{user}": "Clear conversations",
			"GET /api/v1/models":                  "Available models",
			"GET /api/v1/voice/ws":                "Voice WebSocket",
			"GET /app":                            "Web client",
		},
	}
	h.writeJSON(w, http.StatusOK, info)
}

// handleHealth runs all registered checks and aggregates them
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	results, overall := h.health.RunAll(r.Context())

	checks := make(map[string]checkEntry, len(results))
	for name, res := range results {
		checks[name] = checkEntry{Status: string(res.Status), Message: res.Message}
	}

	resp := HealthResponse{
		Status:  string(overall),
		Service: h.health.Service(),
		Version: h.health.Version(),
		Uptime:  h.health.Uptime().Round(time.Second).String(),
		Checks:  checks,
	}

	status := http.StatusOK
	if overall == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

// handleCommand processes one transcribed command
func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var req CommandRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
		return
	}

	resp, err := h.svc.Process(r.Context(), req.UserID, req.Command)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests, please slow down.", "")
		case errors.Is(err, assistant.ErrCommandTooLong):
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Command too long", "")
		default:
			h.logger.Error("Command processing failed", "error", err)
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to process command", err.Error())
		}
		return
	}

	h.writeJSON(w, http.StatusOK, CommandResponse{
		Response: resp.Response,
		Action:   resp.Action,
		Data:     resp.Data,
	})
}

// handleHistory returns a user's recent command history
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "User ID required", "")
		return
	}

	limit := queryInt(r, "limit", 10)
	records, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load history", err.Error())
		return
	}

	entries := make([]HistoryEntry, len(records))
	for i, rec := range records {
		entries[i] = HistoryEntry{
			ID:        rec.ID,
			Command:   rec.Command,
			Result:    rec.Result,
			Timestamp: rec.Timestamp,
		}
	}
	h.writeJSON(w, http.StatusOK, HistoryResponse{UserID: userID, History: entries})
}

// handleSettings reads or updates a user's settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "User ID required", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		settings, err := h.svc.Settings(r.Context(), userID)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load settings", err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, settingsResponse(settings))

	case http.MethodPut:
		var req SettingsRequest
		if err := h.readJSON(r, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
			return
		}
		if req.VoiceSpeed != nil && (*req.VoiceSpeed < 50 || *req.VoiceSpeed > 400) {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Voice speed must be between 50 and 400", "")
			return
		}
		settings, err := h.svc.UpdateSettings(r.Context(), userID, store.SettingsUpdate{
			Voice:      req.Voice,
			VoiceSpeed: req.VoiceSpeed,
			Theme:      req.Theme,
		})
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to update settings", err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, settingsResponse(settings))

	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET or PUT", "")
	}
}

// handleConversations reads or clears a user's conversation messages
func (h *Handler) handleConversations(w http.ResponseWriter, r *http.Request, userID string) {
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "User ID required", "")
		return
	}

	switch r.Method {
	case http.MethodGet:
		limit := queryInt(r, "limit", 50)
		messages, err := h.svc.Conversations(r.Context(), userID, limit)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load conversations", err.Error())
			return
		}
		out := make([]ConversationMessage, len(messages))
		for i, m := range messages {
			role := "assistant"
			if m.IsUser {
				role = "user"
			}
			out[i] = ConversationMessage{
				ID:        m.ID,
				Role:      role,
				Content:   m.Content,
				Timestamp: m.Timestamp,
			}
		}
		h.writeJSON(w, http.StatusOK, ConversationsResponse{UserID: userID, Messages: out})

	case http.MethodDelete:
		if err := h.svc.ClearConversations(r.Context(), userID); err != nil {
			h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to clear conversations", err.Error())
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "user_id": userID})

	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET or DELETE", "")
	}
}

// handleModels lists available models across all providers
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	models, err := h.svc.Models(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list models", err.Error())
		return
	}

	entries := make([]ModelEntry, len(models))
	for i, m := range models {
		entries[i] = ModelEntry{Name: m.Name, Family: m.Family, Provider: m.Provider}
	}
	h.writeJSON(w, http.StatusOK, ModelsResponse{Models: entries})
}

// Helper methods

func settingsResponse(s *store.Settings) SettingsResponse {
	return SettingsResponse{
		UserID:     s.UserID,
		Voice:      s.Voice,
		VoiceSpeed: s.VoiceSpeed,
		Theme:      s.Theme,
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (h *Handler) readJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	resp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}
	h.writeJSON(w, status, resp)
}

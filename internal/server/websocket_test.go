package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/assistant"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/command"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/provider"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/session"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/store"
)

// wsEnvelope decodes outbound messages with the payload left raw.
type wsEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newWSTest(t *testing.T) (*httptest.Server, *WebSocketHandler, *websocket.Conn) {
	t.Helper()

	st := store.NewMemoryStore()
	sessions := session.NewManager(session.Config{})
	t.Cleanup(sessions.Close)

	providers := provider.NewManagerWith(provider.ProviderMistral, &stubProvider{reply: "A canned answer."})
	svc := assistant.New(st, sessions, providers, command.NewProcessor(nil), assistant.Config{})

	srv, err := New(DefaultConfig(), svc, st)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/voice/ws?client_id=tester"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return ts, srv.ws, conn
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(WSMessage{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
}

func receive(t *testing.T, conn *websocket.Conn) wsEnvelope {
	t.Helper()
	var env wsEnvelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return env
}

func TestWebSocketPing(t *testing.T) {
	_, _, conn := newWSTest(t)

	send(t, conn, "ping", nil)
	env := receive(t, conn)
	if env.Type != "pong" {
		t.Errorf("type = %q, want pong", env.Type)
	}
}

func TestWebSocketListeningAck(t *testing.T) {
	_, _, conn := newWSTest(t)

	send(t, conn, "status", WSStatusPayload{Status: "listening"})
	env := receive(t, conn)
	if env.Type != "status" {
		t.Fatalf("type = %q, want status", env.Type)
	}
	var payload WSStatusPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Status != "ready" {
		t.Errorf("status = %q, want ready", payload.Status)
	}
}

func TestWebSocketCommandRoundTrip(t *testing.T) {
	_, _, conn := newWSTest(t)

	send(t, conn, "command", WSCommandPayload{Command: "open spotify", UserID: "alice"})
	env := receive(t, conn)
	if env.Type != "command_response" {
		t.Fatalf("type = %q, want command_response", env.Type)
	}
	var payload CommandResponse
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Action != command.ActionOpenURL {
		t.Errorf("action = %q, want open_url", payload.Action)
	}
	if payload.Data["url"] != "https://open.spotify.com" {
		t.Errorf("url = %q, want https://open.spotify.com", payload.Data["url"])
	}
}

func TestWebSocketUnknownType(t *testing.T) {
	_, _, conn := newWSTest(t)

	send(t, conn, "bogus", nil)
	env := receive(t, conn)
	if env.Type != "error" {
		t.Fatalf("type = %q, want error", env.Type)
	}
	var payload WSErrorPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Code != "unknown_type" {
		t.Errorf("code = %q, want unknown_type", payload.Code)
	}
}

func TestWebSocketClientRegistry(t *testing.T) {
	_, ws, conn := newWSTest(t)

	// A ping round trip guarantees the server finished registration.
	send(t, conn, "ping", nil)
	receive(t, conn)

	if got := ws.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for ws.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := ws.ClientCount(); got != 0 {
		t.Errorf("ClientCount() after close = %d, want 0", got)
	}
}

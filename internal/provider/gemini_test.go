package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiOK(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			}},
		},
		"usageMetadata": map[string]int{"promptTokenCount": 10, "candidatesTokenCount": 5},
	}
}

func TestGeminiGenerate(t *testing.T) {
	var gotKey, gotPath string
	var gotReq geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(geminiOK("The sky is blue due to Rayleigh scattering."))
	}))
	defer server.Close()

	p, err := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: server.URL, DefaultModel: "gemini-2.0-flash"})
	if err != nil {
		t.Fatalf("NewGeminiProvider() error = %v", err)
	}

	resp, err := p.Generate(context.Background(), &GenerateRequest{
		Prompt:      "why is the sky blue",
		System:      "You are Ballsy.",
		Temperature: 0.5,
		MaxTokens:   75,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if gotKey != "g-key" {
		t.Errorf("x-goog-api-key = %q", gotKey)
	}
	if gotPath != "/v1beta/models/gemini-2.0-flash:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "System instructions: You are Ballsy.") {
		t.Errorf("prompt missing system instructions: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "User: why is the sky blue\nAssistant:") {
		t.Errorf("prompt missing user turn: %q", prompt)
	}
	if resp.Text != "The sky is blue due to Rayleigh scattering." {
		t.Errorf("text = %q", resp.Text)
	}
}

func TestGeminiModelFallback(t *testing.T) {
	var paths []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.Contains(r.URL.Path, "gemini-retired") {
			http.Error(w, `{"error":{"message":"model not found"}}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(geminiOK("answer"))
	}))
	defer server.Close()

	p, _ := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: server.URL, DefaultModel: "gemini-retired"})

	resp, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "answer" {
		t.Errorf("text = %q", resp.Text)
	}
	if len(paths) < 2 {
		t.Fatalf("expected fallback to a second model, paths = %v", paths)
	}
	if !strings.Contains(paths[0], "gemini-retired") {
		t.Errorf("first attempt = %q, want configured model", paths[0])
	}
	if resp.Model == "gemini-retired" {
		t.Errorf("resolved model = %q, want a fallback model", resp.Model)
	}
}

func TestGeminiChatFoldsHistory(t *testing.T) {
	var gotReq geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(geminiOK("Berlin."))
	}))
	defer server.Close()

	p, _ := NewGeminiProvider(GeminiConfig{APIKey: "g-key", BaseURL: server.URL})

	// 8 history turns plus the current question; only the last 6 may appear
	messages := []Message{
		{Role: "user", Content: "turn-1"}, {Role: "assistant", Content: "turn-2"},
		{Role: "user", Content: "turn-3"}, {Role: "assistant", Content: "turn-4"},
		{Role: "user", Content: "turn-5"}, {Role: "assistant", Content: "turn-6"},
		{Role: "user", Content: "turn-7"}, {Role: "assistant", Content: "turn-8"},
		{Role: "user", Content: "capital of germany?"},
	}

	if _, err := p.Chat(context.Background(), &ChatRequest{Messages: messages}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	prompt := gotReq.Contents[0].Parts[0].Text
	if strings.Contains(prompt, "turn-1") || strings.Contains(prompt, "turn-2") {
		t.Errorf("prompt contains turns beyond the window: %q", prompt)
	}
	if !strings.Contains(prompt, "turn-3") || !strings.Contains(prompt, "turn-8") {
		t.Errorf("prompt missing windowed history: %q", prompt)
	}
	if !strings.HasSuffix(prompt, "User: capital of germany?\nAssistant:") {
		t.Errorf("prompt = %q", prompt)
	}
}

package provider

import (
	"context"
	"errors"
	"testing"
)

// mockProvider implements Provider for manager tests.
type mockProvider struct {
	name    string
	reply   string
	err     error
	called  int
	lastReq *ChatRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.called++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &ChatResponse{Message: Message{Role: "assistant", Content: m.reply}}, nil
}

func (m *mockProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.called++
	if m.err != nil {
		return nil, m.err
	}
	return &GenerateResponse{Text: m.reply}, nil
}

func (m *mockProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return []ModelInfo{{Name: m.name + "-model", Provider: m.name}}, nil
}

func (m *mockProvider) HealthCheck(ctx context.Context) error { return m.err }

func TestManagerRequiresProvider(t *testing.T) {
	if _, err := NewManager(ManagerConfig{}); err == nil {
		t.Error("NewManager() without keys should fail")
	}
}

func TestManagerChatDefault(t *testing.T) {
	mistral := &mockProvider{name: "mistral", reply: "from mistral"}
	gemini := &mockProvider{name: "gemini", reply: "from gemini"}
	m := NewManagerWith(ProviderMistral, mistral, gemini)

	resp, err := m.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "from mistral" {
		t.Errorf("content = %q, want default provider reply", resp.Message.Content)
	}
	if gemini.called != 0 {
		t.Errorf("fallback provider called %d times, want 0", gemini.called)
	}
}

func TestManagerChatFallsBack(t *testing.T) {
	mistral := &mockProvider{name: "mistral", err: errors.New("rate limited")}
	gemini := &mockProvider{name: "gemini", reply: "from gemini"}
	m := NewManagerWith(ProviderMistral, mistral, gemini)

	resp, err := m.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "from gemini" {
		t.Errorf("content = %q, want fallback reply", resp.Message.Content)
	}
}

func TestManagerChatNoFallbackAvailable(t *testing.T) {
	mistral := &mockProvider{name: "mistral", err: errors.New("down")}
	m := NewManagerWith(ProviderMistral, mistral)

	if _, err := m.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	}); err == nil {
		t.Error("Chat() expected error when the only provider fails")
	}
}

func TestManagerResolveProviderOverride(t *testing.T) {
	mistral := &mockProvider{name: "mistral", reply: "from mistral"}
	gemini := &mockProvider{name: "gemini", reply: "from gemini"}
	m := NewManagerWith(ProviderMistral, mistral, gemini)

	resp, err := m.Chat(context.Background(), &ChatRequest{
		Model:    "gemini:gemini-2.0-flash",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "from gemini" {
		t.Errorf("content = %q, want gemini reply", resp.Message.Content)
	}
	if gemini.lastReq.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q, want bare model name", gemini.lastReq.Model)
	}
}

func TestManagerListModels(t *testing.T) {
	m := NewManagerWith(ProviderMistral,
		&mockProvider{name: "mistral"}, &mockProvider{name: "gemini"})

	models, err := m.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 {
		t.Errorf("len(models) = %d, want 2", len(models))
	}
}

func TestParseProviderModel(t *testing.T) {
	tests := []struct {
		in        string
		wantType  ProviderType
		wantModel string
	}{
		{"mistral:mistral-small-latest", ProviderMistral, "mistral-small-latest"},
		{"gemini:gemini-2.0-flash", ProviderGemini, "gemini-2.0-flash"},
		{"mistral-large-latest", "", "mistral-large-latest"},
		{"", "", ""},
	}
	for _, tt := range tests {
		gotType, gotModel := ParseProviderModel(tt.in)
		if gotType != tt.wantType || gotModel != tt.wantModel {
			t.Errorf("ParseProviderModel(%q) = (%q, %q), want (%q, %q)",
				tt.in, gotType, gotModel, tt.wantType, tt.wantModel)
		}
	}
}

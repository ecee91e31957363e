// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     provider
// Description: Mistral AI provider implementation
// License:     MIT
// ============================================================================

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MistralProvider implements the Provider interface for Mistral AI
type MistralProvider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
}

// MistralConfig holds Mistral provider configuration
type MistralConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	DefaultModel string
}

// DefaultMistralConfig returns default Mistral configuration
func DefaultMistralConfig() MistralConfig {
	return MistralConfig{
		BaseURL:      "https://api.mistral.ai/v1",
		Timeout:      30 * time.Second,
		DefaultModel: "mistral-small-latest",
	}
}

// NewMistralProvider creates a new Mistral provider
func NewMistralProvider(cfg MistralConfig) (*MistralProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Mistral API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultMistralConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultMistralConfig().Timeout
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultMistralConfig().DefaultModel
	}

	return &MistralProvider{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		defaultModel: cfg.DefaultModel,
	}, nil
}

// Name returns the provider name
func (p *MistralProvider) Name() string {
	return "mistral"
}

// Mistral API types (compatible with OpenAI format)
type mistralChatRequest struct {
	Model       string           `json:"model"`
	Messages    []mistralMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type mistralMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int            `json:"index"`
		Message      mistralMessage `json:"message"`
		FinishReason string         `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type mistralModelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

// Chat performs a chat completion
func (p *MistralProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := make([]mistralMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, mistralMessage{
			Role:    "system",
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, mistralMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	mistralReq := mistralChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if mistralReq.MaxTokens == 0 {
		mistralReq.MaxTokens = 150
	}

	start := time.Now()
	body, err := json.Marshal(mistralReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Mistral API error: %s - %s", resp.Status, string(bodyBytes))
	}

	var mistralResp mistralChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&mistralResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(mistralResp.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	return &ChatResponse{
		Message: Message{
			Role:    mistralResp.Choices[0].Message.Role,
			Content: mistralResp.Choices[0].Message.Content,
		},
		Model:         mistralResp.Model,
		PromptTokens:  mistralResp.Usage.PromptTokens,
		OutputTokens:  mistralResp.Usage.CompletionTokens,
		TotalDuration: time.Since(start),
	}, nil
}

// Generate generates text from a prompt via the chat endpoint
func (p *MistralProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	chatResp, err := p.Chat(ctx, &ChatRequest{
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
	})
	if err != nil {
		return nil, err
	}

	return &GenerateResponse{
		Text:          chatResp.Message.Content,
		Model:         chatResp.Model,
		PromptTokens:  chatResp.PromptTokens,
		OutputTokens:  chatResp.OutputTokens,
		TotalDuration: chatResp.TotalDuration,
	}, nil
}

// ListModels lists available models
func (p *MistralProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Fall back to known models if API fails
		return p.getKnownModels(), nil
	}

	var mistralResp mistralModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&mistralResp); err != nil {
		return p.getKnownModels(), nil
	}

	models := make([]ModelInfo, len(mistralResp.Data))
	for i, m := range mistralResp.Data {
		models[i] = ModelInfo{
			Name:     m.ID,
			Family:   "mistral",
			Provider: "mistral",
		}
	}
	return models, nil
}

// getKnownModels returns statically known Mistral models
func (p *MistralProvider) getKnownModels() []ModelInfo {
	return []ModelInfo{
		{Name: "mistral-large-latest", Family: "mistral-large", Provider: "mistral"},
		{Name: "mistral-medium-latest", Family: "mistral-medium", Provider: "mistral"},
		{Name: "mistral-small-latest", Family: "mistral-small", Provider: "mistral"},
		{Name: "ministral-8b-latest", Family: "ministral", Provider: "mistral"},
		{Name: "open-mistral-7b", Family: "open-mistral", Provider: "mistral"},
		{Name: "open-mixtral-8x7b", Family: "open-mixtral", Provider: "mistral"},
	}
}

// HealthCheck checks if the provider is healthy
func (p *MistralProvider) HealthCheck(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

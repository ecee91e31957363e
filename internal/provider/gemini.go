// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     provider
// Description: Google Gemini provider implementation
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
	"strings"
	"time"
)

// geminiHistoryTurns caps how many prior turns are folded into the prompt
const geminiHistoryTurns = 6

// GeminiProvider implements the Provider interface for the Gemini
// Developer API. Gemini has no separate system role in the REST surface
// used here, so system prompt and history are folded into one prompt.
type GeminiProvider struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string

	// fallbackModels are tried in order when a model returns 404
	fallbackModels []string
}

// GeminiConfig holds Gemini provider configuration
type GeminiConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	DefaultModel string
}

// DefaultGeminiConfig returns default Gemini configuration
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL:      "https://generativelanguage.googleapis.com",
		Timeout:      30 * time.Second,
		DefaultModel: "gemini-2.0-flash",
	}
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiConfig().BaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGeminiConfig().Timeout
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultGeminiConfig().DefaultModel
	}

	return &GeminiProvider{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		defaultModel: cfg.DefaultModel,
		fallbackModels: []string{
			cfg.DefaultModel,
			"gemini-2.0-flash-exp",
			"gemini-2.5-flash",
			"gemini-2.5-flash-lite",
			"gemini-2.0-flash",
		},
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Gemini API types
type geminiGenerateRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

type geminiModelsResponse struct {
	Models []struct {
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"models"`
}

// buildPrompt folds system instructions, recent history and the current
// user turn into a single text prompt.
func buildPrompt(system string, history []Message, prompt string) string {
	var b strings.Builder
	if system != "" {
		fmt.Fprintf(&b, "System instructions: %s\n\n", system)
	}

	if len(history) > geminiHistoryTurns {
		history = history[len(history)-geminiHistoryTurns:]
	}
	for _, msg := range history {
		label := "Assistant"
		if msg.Role == "user" {
			label = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
	}

	fmt.Fprintf(&b, "User: %s\nAssistant:", prompt)
	return b.String()
}

// isModelNotFound reports whether the error indicates an unavailable model
func isModelNotFound(status int, body string) bool {
	if status == http.StatusNotFound {
		return true
	}
	lower := strings.ToLower(body)
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "not_found") ||
		strings.Contains(lower, "not supported")
}

// generate runs one generateContent call. Models from the fallback list
// are tried in order until one is available.
func (p *GeminiProvider) generate(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (*geminiGenerateResponse, string, error) {
	models := p.fallbackModels
	if model != "" {
		models = append([]string{model}, models...)
	}

	geminiReq := geminiGenerateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	tried := make(map[string]bool)
	for _, m := range models {
		if tried[m] {
			continue
		}
		tried[m] = true

		url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.baseURL, m)
		httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", p.apiKey)

		resp, err := p.httpClient.Do(httpReq)
		if err != nil {
			return nil, "", fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("Gemini API error: %s - %s", resp.Status, string(bodyBytes))
			if isModelNotFound(resp.StatusCode, string(bodyBytes)) {
				continue
			}
			return nil, "", lastErr
		}

		var geminiResp geminiGenerateResponse
		err = json.NewDecoder(resp.Body).Decode(&geminiResp)
		resp.Body.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode response: %w", err)
		}
		if len(geminiResp.Candidates) == 0 {
			return nil, "", fmt.Errorf("no response candidates")
		}
		return &geminiResp, m, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no Gemini model available")
	}
	return nil, "", lastErr
}

// Chat performs a chat completion
func (p *GeminiProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages")
	}

	last := req.Messages[len(req.Messages)-1]
	history := req.Messages[:len(req.Messages)-1]
	prompt := buildPrompt(req.System, history, last.Content)

	start := time.Now()
	geminiResp, model, err := p.generate(ctx, req.Model, prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Message: Message{
			Role:    "assistant",
			Content: candidateText(geminiResp),
		},
		Model:         model,
		PromptTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens:  geminiResp.UsageMetadata.CandidatesTokenCount,
		TotalDuration: time.Since(start),
	}, nil
}

// Generate generates text from a prompt
func (p *GeminiProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	prompt := buildPrompt(req.System, nil, req.Prompt)

	start := time.Now()
	geminiResp, model, err := p.generate(ctx, req.Model, prompt, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, err
	}

	return &GenerateResponse{
		Text:          candidateText(geminiResp),
		Model:         model,
		PromptTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens:  geminiResp.UsageMetadata.CandidatesTokenCount,
		TotalDuration: time.Since(start),
	}, nil
}

func candidateText(resp *geminiGenerateResponse) string {
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// ListModels lists available models
func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+"/v1beta/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Fall back to known models if API fails
		return p.getKnownModels(), nil
	}

	var geminiResp geminiModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return p.getKnownModels(), nil
	}

	models := make([]ModelInfo, 0, len(geminiResp.Models))
	for _, m := range geminiResp.Models {
		models = append(models, ModelInfo{
			Name:     strings.TrimPrefix(m.Name, "models/"),
			Family:   "gemini",
			Provider: "gemini",
		})
	}
	return models, nil
}

// getKnownModels returns statically known Gemini models
func (p *GeminiProvider) getKnownModels() []ModelInfo {
	return []ModelInfo{
		{Name: "gemini-2.0-flash", Family: "gemini", Provider: "gemini"},
		{Name: "gemini-2.0-flash-exp", Family: "gemini", Provider: "gemini"},
		{Name: "gemini-2.5-flash", Family: "gemini", Provider: "gemini"},
		{Name: "gemini-2.5-flash-lite", Family: "gemini", Provider: "gemini"},
	}
}

// HealthCheck checks if the provider is healthy
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	_, err := p.ListModels(ctx)
	return err
}

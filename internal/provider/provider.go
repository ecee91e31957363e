// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     provider
// Description: LLM provider abstraction layer for multi-provider support
// License:     MIT
// ============================================================================

package provider

import (
	"context"
	"strings"
	"time"
)

// Provider represents an LLM provider interface
type Provider interface {
	// Name returns the provider name
	Name() string

	// Chat performs a chat completion
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Generate generates text from a prompt
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// ListModels lists available models
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// HealthCheck checks if the provider is healthy
	HealthCheck(ctx context.Context) error
}

// Message represents a chat message
type Message struct {
	Role    string
	Content string
}

// ChatRequest represents a chat request
type ChatRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	System      string // System prompt (for providers that support it separately)
}

// ChatResponse represents a chat response
type ChatResponse struct {
	Message       Message
	Model         string
	PromptTokens  int
	OutputTokens  int
	TotalDuration time.Duration
}

// GenerateRequest represents a text generation request
type GenerateRequest struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GenerateResponse represents a text generation response
type GenerateResponse struct {
	Text          string
	Model         string
	PromptTokens  int
	OutputTokens  int
	TotalDuration time.Duration
}

// ModelInfo represents model information
type ModelInfo struct {
	Name     string `json:"name"`
	Family   string `json:"family,omitempty"`
	Provider string `json:"provider"`
}

// ProviderType represents the type of provider
type ProviderType string

const (
	ProviderMistral ProviderType = "mistral"
	ProviderGemini  ProviderType = "gemini"
)

// ParseProviderModel splits a "provider:model" string. A bare model name
// returns an empty provider type.
func ParseProviderModel(modelStr string) (ProviderType, string) {
	if idx := strings.Index(modelStr, ":"); idx > 0 {
		prefix := ProviderType(modelStr[:idx])
		switch prefix {
		case ProviderMistral, ProviderGemini:
			return prefix, modelStr[idx+1:]
		}
	}
	return "", modelStr
}

// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     provider
// Description: Provider manager for multi-provider support
// License:     MIT
// ============================================================================

package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

// Manager manages the configured LLM providers
type Manager struct {
	providers       map[ProviderType]Provider
	defaultProvider ProviderType
	logger          *logging.Logger
	mu              sync.RWMutex
}

// ManagerConfig holds manager configuration
type ManagerConfig struct {
	// Mistral config (optional)
	MistralKey     string
	MistralURL     string
	MistralModel   string
	MistralTimeout time.Duration

	// Gemini config (optional)
	GeminiKey     string
	GeminiURL     string
	GeminiModel   string
	GeminiTimeout time.Duration

	// Default provider
	DefaultProvider string
}

// NewManager creates a new provider manager. At least one provider must
// be configured with an API key.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	logger := logging.New("provider-manager")
	m := &Manager{
		providers: make(map[ProviderType]Provider),
		logger:    logger,
	}

	if cfg.MistralKey != "" {
		mistralCfg := DefaultMistralConfig()
		mistralCfg.APIKey = cfg.MistralKey
		if cfg.MistralURL != "" {
			mistralCfg.BaseURL = cfg.MistralURL
		}
		if cfg.MistralModel != "" {
			mistralCfg.DefaultModel = cfg.MistralModel
		}
		if cfg.MistralTimeout > 0 {
			mistralCfg.Timeout = cfg.MistralTimeout
		}

		mistralProvider, err := NewMistralProvider(mistralCfg)
		if err != nil {
			logger.Warn("Failed to create Mistral provider", "error", err)
		} else {
			m.providers[ProviderMistral] = mistralProvider
			m.defaultProvider = ProviderMistral
			logger.Info("Mistral provider initialized", "model", mistralCfg.DefaultModel)
		}
	}

	if cfg.GeminiKey != "" {
		geminiCfg := DefaultGeminiConfig()
		geminiCfg.APIKey = cfg.GeminiKey
		if cfg.GeminiURL != "" {
			geminiCfg.BaseURL = cfg.GeminiURL
		}
		if cfg.GeminiModel != "" {
			geminiCfg.DefaultModel = cfg.GeminiModel
		}
		if cfg.GeminiTimeout > 0 {
			geminiCfg.Timeout = cfg.GeminiTimeout
		}

		geminiProvider, err := NewGeminiProvider(geminiCfg)
		if err != nil {
			logger.Warn("Failed to create Gemini provider", "error", err)
		} else {
			m.providers[ProviderGemini] = geminiProvider
			if m.defaultProvider == "" {
				m.defaultProvider = ProviderGemini
			}
			logger.Info("Gemini provider initialized", "model", geminiCfg.DefaultModel)
		}
	}

	if len(m.providers) == 0 {
		return nil, fmt.Errorf("no LLM provider configured, set a Mistral or Gemini API key")
	}

	if cfg.DefaultProvider != "" {
		if _, ok := m.providers[ProviderType(cfg.DefaultProvider)]; ok {
			m.defaultProvider = ProviderType(cfg.DefaultProvider)
		}
	}

	logger.Info("Provider manager initialized",
		"providers", len(m.providers),
		"default", string(m.defaultProvider),
	)

	return m, nil
}

// NewManagerWith builds a manager over pre-built providers, mainly for tests
func NewManagerWith(defaultType ProviderType, providers ...Provider) *Manager {
	m := &Manager{
		providers:       make(map[ProviderType]Provider),
		defaultProvider: defaultType,
		logger:          logging.New("provider-manager"),
	}
	for _, p := range providers {
		m.providers[ProviderType(p.Name())] = p
	}
	return m
}

// GetProvider returns a provider by type
func (m *Manager) GetProvider(providerType ProviderType) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provider, ok := m.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("provider not available: %s", providerType)
	}
	return provider, nil
}

// GetDefaultProvider returns the default provider
func (m *Manager) GetDefaultProvider() Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.providers[m.defaultProvider]
}

// ResolveProvider resolves provider and model from a model string.
// Format: "provider:model" or just "model" (uses default provider).
func (m *Manager) ResolveProvider(modelStr string) (Provider, string) {
	providerType, model := ParseProviderModel(modelStr)
	if providerType != "" {
		if provider, err := m.GetProvider(providerType); err == nil {
			return provider, model
		}
	}
	return m.GetDefaultProvider(), model
}

// Chat performs a chat using the appropriate provider. When the resolved
// provider fails, the other configured provider is tried before giving up.
func (m *Manager) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	provider, model := m.ResolveProvider(req.Model)
	req.Model = model

	resp, err := provider.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}

	fallback := m.otherProvider(provider)
	if fallback == nil {
		return nil, err
	}

	m.logger.Warn("Chat failed, trying fallback provider",
		"provider", provider.Name(), "fallback", fallback.Name(), "error", err)

	// the fallback provider resolves its own default model
	fbReq := *req
	fbReq.Model = ""
	return fallback.Chat(ctx, &fbReq)
}

// Generate generates text with the same fallback behavior as Chat
func (m *Manager) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	provider, model := m.ResolveProvider(req.Model)
	req.Model = model

	resp, err := provider.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}

	fallback := m.otherProvider(provider)
	if fallback == nil {
		return nil, err
	}

	m.logger.Warn("Generate failed, trying fallback provider",
		"provider", provider.Name(), "fallback", fallback.Name(), "error", err)

	fbReq := *req
	fbReq.Model = ""
	return fallback.Generate(ctx, &fbReq)
}

// otherProvider returns a configured provider different from p, or nil
func (m *Manager) otherProvider(p Provider) Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, candidate := range m.providers {
		if candidate.Name() != p.Name() {
			return candidate
		}
	}
	return nil
}

// ListModels lists models from all providers
func (m *Manager) ListModels(ctx context.Context) ([]ModelInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var allModels []ModelInfo
	for _, provider := range m.providers {
		models, err := provider.ListModels(ctx)
		if err != nil {
			m.logger.Warn("Failed to list models", "provider", provider.Name(), "error", err)
			continue
		}
		allModels = append(allModels, models...)
	}
	return allModels, nil
}

// ListProviders returns all available provider names
func (m *Manager) ListProviders() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	providers := make([]string, 0, len(m.providers))
	for p := range m.providers {
		providers = append(providers, string(p))
	}
	return providers
}

// HealthCheck checks all providers
func (m *Manager) HealthCheck(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error)
	for name, provider := range m.providers {
		results[string(name)] = provider.HealthCheck(ctx)
	}
	return results
}

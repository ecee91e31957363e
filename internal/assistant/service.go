// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     assistant
// Description: Conversation service wiring commands, sessions, storage
//              and LLM providers together
// License:     MIT
// ============================================================================

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/command"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/provider"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/session"
	"github.com/ethicalzeus07/ballsy-voice-assistant/internal/store"
	"github.com/ethicalzeus07/ballsy-voice-assistant/pkg/core/logging"
)

// SystemPrompt is sent to the LLM on every request
const SystemPrompt = "You are Ballsy, a helpful voice assistant. Always provide a single sentence answer, keeping responses brief, concise, and to the point."

// Errors the HTTP layer maps to status codes
var (
	ErrRateLimited    = errors.New("too many requests")
	ErrCommandTooLong = errors.New("command too long")
)

// uncertainPhrases mark an LLM reply as a non-answer worth demoting to
// a web search.
var uncertainPhrases = []string{
	"don't know", "not familiar", "can't find",
	"don't have information", "not sure",
	"unable to provide", "no information",
	"beyond my knowledge", "not available",
	"hello", "hi there", "what about", "it seems",
	"i don't have specific", "i don't have enough",
}

// Config holds assistant behavior settings
type Config struct {
	MaxCommandLength int
	DefaultModel     string
	Timeout          time.Duration
}

// Service processes commands end to end: rate limiting, rule matching,
// LLM escalation and persistence.
type Service struct {
	store     store.Store
	sessions  *session.Manager
	providers *provider.Manager
	processor *command.Processor
	cfg       Config
	logger    *logging.Logger
}

// New creates the assistant service
func New(st store.Store, sessions *session.Manager, providers *provider.Manager, processor *command.Processor, cfg Config) *Service {
	if cfg.MaxCommandLength <= 0 {
		cfg.MaxCommandLength = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Service{
		store:     st,
		sessions:  sessions,
		providers: providers,
		processor: processor,
		cfg:       cfg,
		logger:    logging.New("assistant"),
	}
}

// Process handles one transcribed command for a user
func (s *Service) Process(ctx context.Context, userID, text string) (*command.Response, error) {
	if userID == "" {
		userID = "1"
	}
	text = strings.TrimSpace(text)
	if len(text) > s.cfg.MaxCommandLength {
		return nil, ErrCommandTooLong
	}

	sess := s.sessions.Get(userID)
	if !sess.Allow(time.Now()) {
		s.logger.Warn("Rate limit exceeded", "user", userID)
		return nil, ErrRateLimited
	}

	if err := s.store.EnsureUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	resp, handled := s.processor.Process(text, sess)
	if !handled {
		if subject, person, ok := command.ParseInfoQuery(text); ok {
			resp = s.infoOrSearch(ctx, sess, subject, person)
		} else {
			resp = s.modelFallback(ctx, sess, text)
		}
	}

	if text != "" {
		if err := s.store.RecordCommand(ctx, userID, text, resp.Response); err != nil {
			s.logger.Error("Failed to record command", "user", userID, "error", err)
		}
		s.persistTurn(ctx, userID, text, resp.Response)
		sess.AppendTurn("user", text)
		sess.AppendTurn("assistant", resp.Response)
	}

	return resp, nil
}

// persistTurn appends the user turn and the reply to the user's open
// conversation. Persistence failures are logged, not surfaced; the reply
// is already computed.
func (s *Service) persistTurn(ctx context.Context, userID, text, reply string) {
	conv, err := s.store.OpenConversation(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to open conversation", "user", userID, "error", err)
		return
	}
	if _, err := s.store.AppendMessage(ctx, conv.ID, true, text); err != nil {
		s.logger.Error("Failed to store user turn", "user", userID, "error", err)
		return
	}
	if _, err := s.store.AppendMessage(ctx, conv.ID, false, reply); err != nil {
		s.logger.Error("Failed to store reply", "user", userID, "error", err)
	}
}

// chat runs one LLM request over the session's recent turns
func (s *Service) chat(ctx context.Context, sess *session.Session, prompt string, temperature float64, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	turns := sess.Turns()
	messages := make([]provider.Message, 0, len(turns)+1)
	for _, turn := range turns {
		messages = append(messages, provider.Message{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: prompt})

	resp, err := s.providers.Chat(ctx, &provider.ChatRequest{
		Messages:    messages,
		Model:       s.cfg.DefaultModel,
		System:      SystemPrompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// infoOrSearch answers an informational question with the LLM and demotes
// non-answers to a search action.
func (s *Service) infoOrSearch(ctx context.Context, sess *session.Session, subject string, person bool) *command.Response {
	var prompt string
	if person {
		prompt = fmt.Sprintf("Who is %s? Provide a brief, factual sentence about this person.", subject)
	} else {
		prompt = fmt.Sprintf("Answer this briefly in one sentence: %s", subject)
	}

	reply, err := s.chat(ctx, sess, prompt, 0.3, 100)
	if err != nil {
		s.logger.Error("Info query failed", "subject", subject, "error", err)
		query := subject
		if person {
			query = fmt.Sprintf("who is %s person", subject)
		}
		return &command.Response{
			Response: "Let me search for that",
			Action:   command.ActionSearch,
			Data:     map[string]string{"query": query},
		}
	}

	lower := strings.ToLower(reply)
	uncertain := containsAnyPhrase(lower, uncertainPhrases)

	if person && (uncertain ||
		len(strings.Fields(reply)) < 4 ||
		strings.HasSuffix(reply, "?") ||
		strings.Contains(lower, "would you like")) {
		return &command.Response{
			Response: fmt.Sprintf("Let me find information about %s", subject),
			Action:   command.ActionSearch,
			Data:     map[string]string{"query": fmt.Sprintf("who is %s person biography", subject)},
		}
	}
	if !person && uncertain {
		return &command.Response{
			Response: fmt.Sprintf("Let me search for information about %s", subject),
			Action:   command.ActionSearch,
			Data:     map[string]string{"query": subject},
		}
	}

	return &command.Response{Response: reply}
}

// modelFallback sends everything the rules could not handle to the LLM,
// clipped to a single sentence.
func (s *Service) modelFallback(ctx context.Context, sess *session.Session, text string) *command.Response {
	prompt := fmt.Sprintf("Answer this in a single concise sentence: %s", text)

	reply, err := s.chat(ctx, sess, prompt, 0.5, 75)
	if err != nil {
		s.logger.Error("Model fallback failed", "error", err)
		return &command.Response{
			Response: "Let me search for that",
			Action:   command.ActionSearch,
			Data:     map[string]string{"query": text},
		}
	}

	return &command.Response{Response: firstSentence(reply)}
}

// firstSentence clips a reply to its first sentence
func firstSentence(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if i+1 >= len(s) {
				return s
			}
			if s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t' {
				return s[:i+1]
			}
		}
	}
	return s
}

func containsAnyPhrase(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// History returns the user's recent commands, newest first
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*store.CommandRecord, error) {
	return s.store.CommandHistory(ctx, userID, limit)
}

// Conversations returns the user's recent messages in order
func (s *Service) Conversations(ctx context.Context, userID string, limit int) ([]*store.Message, error) {
	return s.store.RecentMessages(ctx, userID, limit)
}

// ClearConversations wipes one user's conversation history
func (s *Service) ClearConversations(ctx context.Context, userID string) error {
	return s.store.ClearConversations(ctx, userID)
}

// Settings returns the user's settings with defaults applied
func (s *Service) Settings(ctx context.Context, userID string) (*store.Settings, error) {
	return s.store.GetSettings(ctx, userID)
}

// UpdateSettings applies a partial settings change
func (s *Service) UpdateSettings(ctx context.Context, userID string, update store.SettingsUpdate) (*store.Settings, error) {
	if err := s.store.EnsureUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return s.store.UpdateSettings(ctx, userID, update)
}

// Models lists the models of all configured providers
func (s *Service) Models(ctx context.Context) ([]provider.ModelInfo, error) {
	return s.providers.ListModels(ctx)
}

// Providers lists the configured provider names
func (s *Service) Providers() []string {
	return s.providers.ListProviders()
}

// ClearAllHistory wipes messages, conversations and command history.
// Used at startup when clear_on_start is set.
func (s *Service) ClearAllHistory(ctx context.Context) error {
	if err := s.store.ClearHistory(ctx); err != nil {
		return err
	}
	s.logger.Info("Conversation history cleared, fresh start")
	return nil
}

// ProviderHealth reports per-provider health for the health endpoint
func (s *Service) ProviderHealth(ctx context.Context) map[string]error {
	return s.providers.HealthCheck(ctx)
}

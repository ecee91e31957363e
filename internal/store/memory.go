package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in memory. It backs tests and can serve
// as a throwaway store for local runs.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]*User
	conversations map[string]*Conversation
	messages      map[string][]*Message // keyed by conversation ID
	settings      map[string]*Settings
	commands      map[string][]*CommandRecord // keyed by user ID
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]*User),
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
		settings:      make(map[string]*Settings),
		commands:      make(map[string][]*CommandRecord),
	}
}

func (s *MemoryStore) EnsureUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		s.users[userID] = &User{ID: userID, Username: userID, CreatedAt: time.Now()}
	}
	return nil
}

func (s *MemoryStore) OpenConversation(ctx context.Context, userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *Conversation
	for _, conv := range s.conversations {
		if conv.UserID != userID {
			continue
		}
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest != nil {
		return latest, nil
	}

	now := time.Now()
	conv := &Conversation{ID: uuid.NewString(), UserID: userID, StartedAt: now, UpdatedAt: now}
	s.conversations[conv.ID] = conv
	return conv, nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, conversationID string, isUser bool, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		IsUser:         isUser,
		Content:        content,
		Timestamp:      time.Now(),
	}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	if conv, ok := s.conversations[conversationID]; ok {
		conv.UpdatedAt = msg.Timestamp
	}
	return msg, nil
}

func (s *MemoryStore) RecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	var all []*Message
	for convID, msgs := range s.messages {
		conv, ok := s.conversations[convID]
		if !ok || conv.UserID != userID {
			continue
		}
		all = append(all, msgs...)
	}

	// insertion order within a conversation is chronological already;
	// merge across conversations by timestamp
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].Timestamp.Before(all[j-1].Timestamp); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}

	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *MemoryStore) ClearConversations(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, conv := range s.conversations {
		if conv.UserID == userID {
			delete(s.conversations, id)
			delete(s.messages, id)
		}
	}
	return nil
}

func (s *MemoryStore) RecordCommand(ctx context.Context, userID, command, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &CommandRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Command:   command,
		Result:    result,
		Timestamp: time.Now(),
	}
	s.commands[userID] = append(s.commands[userID], rec)
	return nil
}

func (s *MemoryStore) CommandHistory(ctx context.Context, userID string, limit int) ([]*CommandRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	recs := s.commands[userID]
	out := make([]*CommandRecord, 0, limit)
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *MemoryStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if settings, ok := s.settings[userID]; ok {
		copied := *settings
		return &copied, nil
	}
	return DefaultSettings(userID), nil
}

func (s *MemoryStore) UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.settings[userID]
	if !ok {
		current = DefaultSettings(userID)
		s.settings[userID] = current
	}

	if update.Voice != nil {
		current.Voice = *update.Voice
	}
	if update.VoiceSpeed != nil {
		current.VoiceSpeed = *update.VoiceSpeed
	}
	if update.Theme != nil {
		current.Theme = *update.Theme
	}

	copied := *current
	return &copied, nil
}

func (s *MemoryStore) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]*Conversation)
	s.messages = make(map[string][]*Message)
	s.commands = make(map[string][]*CommandRecord)
	return nil
}

func (s *MemoryStore) Statistics(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := 0
	for _, msgs := range s.messages {
		messages += len(msgs)
	}
	commands := 0
	for _, recs := range s.commands {
		commands += len(recs)
	}
	return map[string]interface{}{
		"driver":          "memory",
		"users":           len(s.users),
		"conversations":   len(s.conversations),
		"messages":        messages,
		"command_history": commands,
	}, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

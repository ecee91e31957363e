// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     store
// Description: Persistence layer for users, conversations and settings
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"time"
)

// Default user settings
const (
	DefaultVoice      = "Daniel"
	DefaultVoiceSpeed = 180
	DefaultTheme      = "light"
)

// User represents a registered user
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation represents one conversation thread of a user
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message represents a single turn within a conversation
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	IsUser         bool      `json:"is_user"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// Settings holds per-user speech and UI preferences
type Settings struct {
	UserID     string `json:"user_id"`
	Voice      string `json:"voice"`
	VoiceSpeed int    `json:"voice_speed"`
	Theme      string `json:"theme"`
}

// SettingsUpdate carries a partial settings change. Nil fields are left
// untouched.
type SettingsUpdate struct {
	Voice      *string `json:"voice,omitempty"`
	VoiceSpeed *int    `json:"voice_speed,omitempty"`
	Theme      *string `json:"theme,omitempty"`
}

// CommandRecord is one entry of a user's command history
type CommandRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	Result    string    `json:"result,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultSettings returns the settings applied to users who never saved any.
func DefaultSettings(userID string) *Settings {
	return &Settings{
		UserID:     userID,
		Voice:      DefaultVoice,
		VoiceSpeed: DefaultVoiceSpeed,
		Theme:      DefaultTheme,
	}
}

// Store defines the interface for assistant persistence
type Store interface {
	// User operations
	EnsureUser(ctx context.Context, userID string) error

	// Conversation operations
	OpenConversation(ctx context.Context, userID string) (*Conversation, error)
	AppendMessage(ctx context.Context, conversationID string, isUser bool, content string) (*Message, error)
	RecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error)
	ClearConversations(ctx context.Context, userID string) error

	// Command history
	RecordCommand(ctx context.Context, userID, command, result string) error
	CommandHistory(ctx context.Context, userID string, limit int) ([]*CommandRecord, error)

	// Settings
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) (*Settings, error)

	// Maintenance
	ClearHistory(ctx context.Context) error
	Statistics(ctx context.Context) (map[string]interface{}, error)
	Ping(ctx context.Context) error
	Close() error
}

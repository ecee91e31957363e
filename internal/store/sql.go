package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names accepted by NewSQLStore
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore implements Store on database/sql with SQLite or PostgreSQL
type SQLStore struct {
	db     *sql.DB
	driver string
	mu     sync.RWMutex
}

// SQLConfig holds configuration for the SQL store
type SQLConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file path
	DSN    string // postgres connection string
}

// NewSQLStore opens the database, applies the schema and returns the store
func NewSQLStore(cfg SQLConfig) (*SQLStore, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case DriverSQLite, "sqlite3", "":
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		db, err = sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLStore{db: db, driver: cfg.Driver}
	if store.driver == "" || store.driver == "sqlite3" {
		store.driver = DriverSQLite
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// rebind converts ? placeholders to $n for postgres
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// initSchema creates the necessary tables
func (s *SQLStore) initSchema() error {
	schema := `
	-- Users table
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	-- Conversations table
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		started_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	-- Messages table
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		is_user BOOLEAN NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMP NOT NULL
	);

	-- Settings table
	CREATE TABLE IF NOT EXISTS settings (
		user_id TEXT PRIMARY KEY REFERENCES users(id),
		voice TEXT NOT NULL,
		voice_speed INTEGER NOT NULL,
		theme TEXT NOT NULL
	);

	-- Command history table
	CREATE TABLE IF NOT EXISTS command_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		command TEXT NOT NULL,
		result TEXT,
		timestamp TIMESTAMP NOT NULL
	);

	-- Indices
	CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations(user_id, updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_commands_user ON command_history(user_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// EnsureUser creates the user row if it does not exist yet
func (s *SQLStore) EnsureUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == "" {
		return fmt.Errorf("user ID is required")
	}

	query := `INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)`
	if s.driver == DriverPostgres {
		query += ` ON CONFLICT (id) DO NOTHING`
	} else {
		query = strings.Replace(query, "INSERT", "INSERT OR IGNORE", 1)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(query), userID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// OpenConversation returns the user's most recent conversation, creating
// one when none exists.
func (s *SQLStore) OpenConversation(ctx context.Context, userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, user_id, started_at, updated_at
		FROM conversations WHERE user_id = ?
		ORDER BY updated_at DESC LIMIT 1
	`), userID)

	var conv Conversation
	err := row.Scan(&conv.ID, &conv.UserID, &conv.StartedAt, &conv.UpdatedAt)
	if err == nil {
		return &conv, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	now := time.Now()
	conv = Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO conversations (id, user_id, started_at, updated_at)
		VALUES (?, ?, ?, ?)
	`), conv.ID, conv.UserID, conv.StartedAt, conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return &conv, nil
}

// AppendMessage adds a message and bumps the conversation's updated_at
// in one transaction.
func (s *SQLStore) AppendMessage(ctx context.Context, conversationID string, isUser bool, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}

	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		IsUser:         isUser,
		Content:        content,
		Timestamp:      time.Now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO messages (id, conversation_id, is_user, content, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`), msg.ID, msg.ConversationID, msg.IsUser, msg.Content, msg.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		UPDATE conversations SET updated_at = ? WHERE id = ?
	`), msg.Timestamp, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns the user's latest messages in chronological order
func (s *SQLStore) RecentMessages(ctx context.Context, userID string, limit int) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT m.id, m.conversation_id, m.is_user, m.content, m.timestamp
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE c.user_id = ?
		ORDER BY m.timestamp DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.IsUser, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	// query returns newest first, callers want chronological order
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// ClearConversations deletes all conversations and messages of one user
func (s *SQLStore) ClearConversations(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		DELETE FROM messages WHERE conversation_id IN
		(SELECT id FROM conversations WHERE user_id = ?)
	`), userID)
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM conversations WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversations: %w", err)
	}

	return tx.Commit()
}

// RecordCommand stores one command history entry
func (s *SQLStore) RecordCommand(ctx context.Context, userID, command, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res sql.NullString
	if result != "" {
		res = sql.NullString{String: result, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO command_history (id, user_id, command, result, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`), uuid.NewString(), userID, command, res, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// CommandHistory returns the user's latest commands, newest first
func (s *SQLStore) CommandHistory(ctx context.Context, userID string, limit int) ([]*CommandRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, user_id, command, result, timestamp
		FROM command_history
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list command history: %w", err)
	}
	defer rows.Close()

	var records []*CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var result sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Command, &result, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan command record: %w", err)
		}
		rec.Result = result.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read command history: %w", err)
	}
	return records, nil
}

// GetSettings returns the user's settings, or the defaults when none
// were saved yet.
func (s *SQLStore) GetSettings(ctx context.Context, userID string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT user_id, voice, voice_speed, theme FROM settings WHERE user_id = ?
	`), userID)

	var settings Settings
	err := row.Scan(&settings.UserID, &settings.Voice, &settings.VoiceSpeed, &settings.Theme)
	if err == sql.ErrNoRows {
		return DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings applies a partial settings update. Absent fields keep
// their current or default value.
func (s *SQLStore) UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) (*Settings, error) {
	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
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

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO settings (user_id, voice, voice_speed, theme) VALUES (?, ?, ?, ?)`
	if s.driver == DriverPostgres {
		query += ` ON CONFLICT (user_id) DO UPDATE SET
			voice = EXCLUDED.voice, voice_speed = EXCLUDED.voice_speed, theme = EXCLUDED.theme`
	} else {
		query += ` ON CONFLICT (user_id) DO UPDATE SET
			voice = excluded.voice, voice_speed = excluded.voice_speed, theme = excluded.theme`
	}

	_, err = s.db.ExecContext(ctx, s.rebind(query),
		current.UserID, current.Voice, current.VoiceSpeed, current.Theme)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return current, nil
}

// ClearHistory wipes all messages, conversations and command history
func (s *SQLStore) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"messages", "command_history", "conversations"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Statistics returns row counts per table
func (s *SQLStore) Statistics(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{"driver": s.driver}
	for _, table := range []string{"users", "conversations", "messages", "command_history"} {
		var count int
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
		if err := row.Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// Ping checks database connectivity
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

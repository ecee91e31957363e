// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     logging
// Description: Structured JSON logging shared by all Ballsy components
// License:     MIT
// ============================================================================

package logging

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string level to a Level, defaulting to info
func ParseLevel(level string) Level {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	defaultMu     sync.RWMutex
	defaultLevel            = LevelInfo
	defaultOutput io.Writer = os.Stdout
)

// SetDefaultLevel sets the minimum level for loggers created afterwards
func SetDefaultLevel(level Level) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLevel = level
}

// SetDefaultOutput redirects loggers created afterwards to the given writer
func SetDefaultOutput(w io.Writer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOutput = w
}

// Logger writes structured JSON log entries with a named scope
type Logger struct {
	name   string
	level  Level
	output io.Writer
	fields map[string]interface{}
	mu     *sync.Mutex
}

// New creates a logger with the default level and output
func New(name string) *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return &Logger{
		name:   name,
		level:  defaultLevel,
		output: defaultOutput,
		mu:     &sync.Mutex{},
	}
}

// WithLevel returns a copy of the logger with the given minimum level
func (l *Logger) WithLevel(level Level) *Logger {
	clone := *l
	clone.level = level
	return &clone
}

// With returns a copy of the logger that attaches the given key-value pairs
// to every entry
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	clone := *l
	clone.fields = make(map[string]interface{}, len(l.fields)+len(keysAndValues)/2)
	for k, v := range l.fields {
		clone.fields[k] = v
	}
	mergePairs(clone.fields, keysAndValues)
	return &clone
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues)
}

func (l *Logger) log(level Level, msg string, keysAndValues []interface{}) {
	if level < l.level {
		return
	}

	entry := make(map[string]interface{}, len(l.fields)+len(keysAndValues)/2+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	mergePairs(entry, keysAndValues)
	entry["ts"] = time.Now().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["logger"] = l.name
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		// Unmarshalable value in the pairs; keep the message at least
		data, _ = json.Marshal(map[string]interface{}{
			"ts":     time.Now().Format(time.RFC3339Nano),
			"level":  level.String(),
			"logger": l.name,
			"msg":    msg,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(data, '\n'))
}

// mergePairs folds key-value pairs into a map, stringifying error and
// duration values and skipping non-string keys
func mergePairs(dst map[string]interface{}, keysAndValues []interface{}) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			dst[key] = v.Error()
		case time.Duration:
			dst[key] = v.String()
		default:
			dst[key] = v
		}
	}
}

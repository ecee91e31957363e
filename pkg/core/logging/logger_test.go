package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
)

func newTestLogger(name string, level Level) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{
		name:   name,
		level:  level,
		output: buf,
		mu:     &sync.Mutex{},
	}, buf
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	logger, buf := newTestLogger("test", LevelInfo)

	logger.Info("hello", "user", "u1", "count", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", entry["msg"])
	}
	if entry["logger"] != "test" {
		t.Errorf("logger = %v, want test", entry["logger"])
	}
	if entry["user"] != "u1" {
		t.Errorf("user = %v, want u1", entry["user"])
	}
	if entry["count"] != float64(3) {
		t.Errorf("count = %v, want 3", entry["count"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	logger, buf := newTestLogger("test", LevelWarn)

	logger.Debug("d")
	logger.Info("i")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}

	logger.Warn("w")
	if buf.Len() == 0 {
		t.Error("expected warn output")
	}
}

func TestLoggerErrorValue(t *testing.T) {
	logger, buf := newTestLogger("test", LevelInfo)

	logger.Error("failed", "error", errors.New("boom"))

	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("error value not stringified: %q", buf.String())
	}
}

func TestLoggerWith(t *testing.T) {
	logger, buf := newTestLogger("test", LevelInfo)

	scoped := logger.With("request_id", "r1")
	scoped.Info("one")
	scoped.Info("two")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, `"request_id":"r1"`) {
			t.Errorf("line missing bound field: %q", line)
		}
	}
}

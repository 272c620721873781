package transcript

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all.ndjson")
	logger, err := NewFileLogger(Config{
		Enabled:    true,
		Dir:        dir,
		GlobalFile: global,
		QueueSize:  16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		SessionID:  "sess-1",
		Channel:    "chat_http",
		Direction:  "outbound",
		EventType:  EventUserMessage,
		ContentRaw: "define serendipity",
	})

	line := waitForLogLine(t, filepath.Join(dir, "sess-1.ndjson"))
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.ContentRaw != "define serendipity" {
		t.Fatalf("unexpected ContentRaw: %q", got.ContentRaw)
	}
	if got.Content == "" || got.Timestamp == "" {
		t.Fatalf("expected content and timestamp to be populated: %+v", got)
	}
	waitForLogLine(t, global)
}

func TestFileLoggerSanitizesSessionID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewFileLogger(Config{Enabled: true, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{SessionID: "../escape", EventType: EventUserMessage, ContentRaw: "x"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "___escape.ndjson")); err != nil {
		t.Fatalf("expected sanitized file: %v", err)
	}
	// Log after Close is a no-op.
	logger.Log(Event{SessionID: "late"})
}

func TestNewDisabledReturnsNop(t *testing.T) {
	l, err := New(Config{}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := l.(Nop); !ok {
		t.Fatalf("expected Nop logger, got %T", l)
	}
}

func TestCleanForReadability(t *testing.T) {
	t.Parallel()

	raw := "\x1b[31merror\x1b[0m   plain [WORD_SCRAMBLE]"
	clean := CleanForReadability(raw)
	if strings.Contains(clean, "\x1b[31m") || strings.Contains(clean, "[WORD_SCRAMBLE]") {
		t.Fatalf("expected escapes and marker to be stripped: %q", clean)
	}
	if clean != "error plain" {
		t.Fatalf("unexpected clean text: %q", clean)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			return lines[len(lines)-1]
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/wordchat/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "wordchat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLite_AppliesPragmas(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)

	var sync int
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA synchronous").Scan(&sync))
	assert.Equal(t, 1, sync)
}

func game(word string) *domain.WordGame {
	return &domain.WordGame{
		Word:                  word,
		Definition:            "definition of " + word,
		PartOfSpeech:          "noun",
		Example:               "An example with " + word + ".",
		ScrambleSentence:      "The " + word + " was nice.",
		ComprehensionQuestion: "What is " + word + "?",
		Options:               []string{"a", "b", "c", "d"},
		CorrectAnswer:         "a",
	}
}

func TestSQLiteStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordWordGame(ctx, "sess-1", game("serendipity"), base))
	require.NoError(t, s.RecordWordGame(ctx, "sess-1", game("ephemeral"), base.Add(time.Minute)))
	require.NoError(t, s.RecordWordGame(ctx, "sess-2", game("laconic"), base))

	words, err := s.ListWords(ctx, "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "ephemeral", words[0].Word)
	assert.Equal(t, "serendipity", words[1].Word)
	assert.Equal(t, "noun", words[1].PartOfSpeech)
	assert.True(t, words[1].DeliveredAt.Equal(base))

	limited, err := s.ListWords(ctx, "sess-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListWords(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestSQLiteStore_RecordNilGame(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.RecordWordGame(context.Background(), "sess", nil, time.Now()))
}

func TestSQLiteStore_PruneBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordWordGame(ctx, "sess", game("old"), old))
	require.NoError(t, s.RecordWordGame(ctx, "sess", game("fresh"), fresh))

	deleted, err := s.PruneBefore(ctx, fresh.Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	words, err := s.ListWords(ctx, "sess", 10)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "fresh", words[0].Word)
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

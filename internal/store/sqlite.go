package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// modernc.org/sqlite applies _pragma parameters on every new connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

// Interface compliance check.
var _ Repository = (*SQLiteStore)(nil)

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS vocabulary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		word TEXT NOT NULL,
		definition TEXT NOT NULL,
		part_of_speech TEXT NOT NULL,
		example TEXT NOT NULL,
		game_json TEXT NOT NULL,
		delivered_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_session ON vocabulary(session_id, delivered_at);
	CREATE INDEX IF NOT EXISTS idx_vocabulary_delivered ON vocabulary(delivered_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordWordGame stores a delivered game. Busy errors are retried with backoff.
func (s *SQLiteStore) RecordWordGame(ctx context.Context, sessionID string, game *domain.WordGame, deliveredAt time.Time) error {
	if game == nil {
		return errors.New("record word game: nil game")
	}
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("encode word game: %w", err)
	}

	query := `
	INSERT INTO vocabulary (session_id, word, definition, part_of_speech, example, game_json, delivered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	err = shared.RetryOnConflict(ctx, s.retry, "record_word_game", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			sessionID, game.Word, game.Definition, game.PartOfSpeech, game.Example,
			string(gameJSON), deliveredAt.UnixMilli(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert vocabulary: %w", err)
	}
	return nil
}

// ListWords returns the newest entries for sessionID.
func (s *SQLiteStore) ListWords(ctx context.Context, sessionID string, limit int) ([]*domain.VocabularyEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT id, session_id, word, definition, part_of_speech, example, delivered_at
		FROM vocabulary WHERE session_id = ?
		ORDER BY delivered_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query vocabulary: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close vocabulary rows", "error", closeErr)
		}
	}()

	entries := make([]*domain.VocabularyEntry, 0)
	for rows.Next() {
		var e domain.VocabularyEntry
		var deliveredAt int64
		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.Word, &e.Definition,
			&e.PartOfSpeech, &e.Example, &deliveredAt,
		); err != nil {
			return nil, fmt.Errorf("scan vocabulary row: %w", err)
		}
		e.DeliveredAt = time.UnixMilli(deliveredAt).UTC()
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vocabulary: %w", err)
	}
	return entries, nil
}

// PruneBefore deletes entries older than t.
func (s *SQLiteStore) PruneBefore(ctx context.Context, t time.Time) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, s.retry, "prune_vocabulary", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM vocabulary WHERE delivered_at < ?`, t.UnixMilli())
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune vocabulary: %w", err)
	}
	return deleted, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// Package store persists the vocabulary history of delivered word games.
package store

import (
	"context"
	"time"

	"github.com/ashureev/wordchat/internal/domain"
)

// DefaultListLimit caps ListWords when the caller passes no limit.
const DefaultListLimit = 50

// Repository defines the interface for the vocabulary history.
type Repository interface {
	// RecordWordGame stores a delivered game for sessionID.
	RecordWordGame(ctx context.Context, sessionID string, game *domain.WordGame, deliveredAt time.Time) error

	// ListWords returns the most recent entries for sessionID, newest first.
	ListWords(ctx context.Context, sessionID string, limit int) ([]*domain.VocabularyEntry, error)

	// PruneBefore deletes entries delivered before t and returns how many were removed.
	PruneBefore(ctx context.Context, t time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

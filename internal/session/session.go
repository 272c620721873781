// Package session keeps per-client chat state in a bounded, expiring store.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/llm"
)

const (
	// MaxIDLength is the longest session key accepted.
	MaxIDLength = 36
	// DefaultID is used when a client sends no session key.
	DefaultID = "default"
)

// NormalizeID trims a client-supplied session key and cuts it to MaxIDLength runes.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > MaxIDLength {
		n := 0
		for i := range id {
			if n == MaxIDLength {
				id = id[:i]
				break
			}
			n++
		}
	}
	if id == "" {
		return DefaultID
	}
	return id
}

// Session is the server-side state of one client conversation.
//
// Fields other than ID and CreatedAt must only be touched between Lock and
// Unlock; the store serialises turns of the same session through that lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu            sync.Mutex
	handle        llm.Handle
	game          *domain.WordGame
	gameCreatedAt time.Time
	transcript    *Transcript
	turns         int
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		transcript: NewTranscript(DefaultTranscriptSize),
	}
}

// Lock acquires the single-writer lock for a turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the turn lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Handle returns the live chat handle, nil before the first turn.
func (s *Session) Handle() llm.Handle { return s.handle }

// SetHandle replaces the chat handle.
func (s *Session) SetHandle(h llm.Handle) { s.handle = h }

// State reports whether a word game is waiting for delivery.
func (s *Session) State() domain.SessionState {
	if s.game != nil {
		return domain.StateAwaitingGameDelivery
	}
	return domain.StateIdle
}

// PendingGame returns the stored game and when it was generated.
func (s *Session) PendingGame() (*domain.WordGame, time.Time) {
	return s.game, s.gameCreatedAt
}

// SetGame stores a freshly generated game, moving the session to AwaitingGameDelivery.
func (s *Session) SetGame(g *domain.WordGame, now time.Time) {
	s.game = g
	s.gameCreatedAt = now
}

// TakeGame returns the pending game and clears it, moving the session back to Idle.
func (s *Session) TakeGame() *domain.WordGame {
	g := s.game
	s.ClearGame()
	return g
}

// ClearGame drops any pending game.
func (s *Session) ClearGame() {
	s.game = nil
	s.gameCreatedAt = time.Time{}
}

// Transcript returns the bounded conversation tail.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Turns returns how many turns the session has completed.
func (s *Session) Turns() int { return s.turns }

// CountTurn increments the turn counter.
func (s *Session) CountTurn() { s.turns++ }

// Reset drops the chat handle, pending game and transcript so the next turn
// starts a fresh conversational context.
func (s *Session) Reset() {
	s.handle = nil
	s.ClearGame()
	s.transcript.Reset()
	s.turns = 0
}

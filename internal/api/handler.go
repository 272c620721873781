// Package api provides HTTP handlers for the wordchat API.
package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"

	"github.com/ashureev/wordchat/internal/domain"
)

// ChatService is the orchestrator surface the HTTP layer needs.
type ChatService interface {
	Turn(ctx context.Context, sessionID, prompt string) (iter.Seq[domain.Event], error)
	Reset(sessionID string) error
	State(sessionID string) domain.SessionState
	History(ctx context.Context, sessionID string, limit int) ([]*domain.VocabularyEntry, error)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

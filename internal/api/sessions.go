package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/session"
)

const maxWordsLimit = 200

// SessionHandler exposes session state and vocabulary history.
type SessionHandler struct {
	chat  ChatService
	reads singleflight.Group
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc ChatService) *SessionHandler {
	return &SessionHandler{chat: svc}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/words", h.ListWords)
		r.Post("/reset", h.Reset)
	})
}

// GetSession reports whether a game is waiting for delivery.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := session.NormalizeID(chi.URLParam(r, "sessionID"))
	JSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"state":      h.chat.State(id).String(),
	})
}

// ListWords returns the words delivered to a session, newest first.
// Concurrent identical reads share one query.
func (h *SessionHandler) ListWords(w http.ResponseWriter, r *http.Request) {
	id := session.NormalizeID(chi.URLParam(r, "sessionID"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxWordsLimit)
	}

	key := id + ":" + strconv.Itoa(limit)
	v, err, _ := h.reads.Do(key, func() (interface{}, error) {
		return h.chat.History(r.Context(), id, limit)
	})
	if err != nil {
		slog.Error("Failed to list words", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load vocabulary history")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"words":      v.([]*domain.VocabularyEntry),
	})
}

// Reset drops the session's chat context and pending game.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id := session.NormalizeID(chi.URLParam(r, "sessionID"))
	if err := h.chat.Reset(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			Error(w, http.StatusNotFound, "session not found")
			return
		}
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	slog.Info("Session reset", "session_id", id)
	JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

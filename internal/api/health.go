package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/wordchat/internal/config"
)

// Pinger is satisfied by the history repository.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and configuration endpoints.
type HealthHandler struct {
	db  Pinger
	cfg *config.Config
}

// NewHealthHandler creates a HealthHandler. db may be nil when history is disabled.
func NewHealthHandler(db Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{db: db, cfg: cfg}
}

// RegisterRoutes registers the health and config routes.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Get("/api/config", h.GetConfig)
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	switch {
	case h.db == nil:
		checks["database"] = "disabled"
	case h.db.Ping(ctx) != nil:
		slog.Error("Health check failed", "check", "database")
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	default:
		checks["database"] = "ok"
	}

	if h.cfg != nil && h.cfg.MockMode() {
		checks["model"] = "mock"
	} else {
		checks["model"] = "ok"
	}

	JSON(w, statusCode, status)
}

// GetConfig returns the server configuration for the frontend.
func (h *HealthHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	if h.cfg == nil {
		JSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"model":           h.cfg.ModelName,
		"mock_mode":       h.cfg.MockMode(),
		"classifier":      h.cfg.Classifier,
		"history_enabled": h.cfg.History.Enabled,
		"lesson_ttl":      int64(h.cfg.Session.LessonTTL.Seconds()),
	})
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/wordchat/internal/chat"
	"github.com/ashureev/wordchat/internal/domain"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

const defaultKeepaliveInterval = 15 * time.Second

// ChatRequest is the body (or query) of a chat call.
type ChatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
}

// ChatHandler streams chat turns over server-sent events.
type ChatHandler struct {
	chat        ChatService
	maxBodySize int64
	keepalive   time.Duration
}

// NewChatHandler creates a ChatHandler. Zero limits fall back to defaults.
func NewChatHandler(svc ChatService, maxBodySize int64, keepalive time.Duration) *ChatHandler {
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxRequestBodySize
	}
	if keepalive <= 0 {
		keepalive = defaultKeepaliveInterval
	}
	return &ChatHandler{chat: svc, maxBodySize: maxBodySize, keepalive: keepalive}
}

// RegisterRoutes registers the chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Get("/chat", h.HandleChat)
}

// HandleChat handles POST and GET /chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	req, err := parseChatRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.chat.Turn(ctx, req.SessionID, req.Prompt)
	if errors.Is(err, chat.ErrPromptRequired) {
		Error(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	slog.Info("Chat stream opened",
		"session_id", req.SessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"prompt_length", len(req.Prompt),
	)

	// The turn runs on its own goroutine so keepalives can interleave with
	// slow model output.
	out := make(chan domain.Event)
	go func() {
		defer close(out)
		for e := range events {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Chat stream client disconnected", "session_id", req.SessionID)
			return
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				slog.Warn("failed to write SSE keepalive", "error", err)
				return
			}
			flusher.Flush()
		case e, ok := <-out:
			if !ok {
				if err := writeSSEData(w, domain.DoneSentinel); err != nil {
					slog.Warn("failed to write SSE done sentinel", "error", err)
				}
				flusher.Flush()
				return
			}
			if err := writeSSEEvent(w, e); err != nil {
				slog.Warn("failed to write SSE event", "error", err, "session_id", req.SessionID)
				return
			}
			flusher.Flush()
		}
	}
}

// parseChatRequest reads prompt and sessionId from a JSON or form body,
// falling back to the query string for fields the body left empty.
func parseChatRequest(r *http.Request) (ChatRequest, error) {
	var req ChatRequest

	if r.Method == http.MethodPost {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "application/x-www-form-urlencoded", "multipart/form-data":
			if err := r.ParseForm(); err != nil {
				return req, fmt.Errorf("parse form: %w", err)
			}
			req.Prompt = r.PostForm.Get("prompt")
			req.SessionID = r.PostForm.Get("sessionId")
		default:
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				return req, fmt.Errorf("decode body: %w", err)
			}
		}
	}

	q := r.URL.Query()
	if req.Prompt == "" {
		req.Prompt = q.Get("prompt")
	}
	if req.SessionID == "" {
		req.SessionID = q.Get("sessionId")
	}
	return req, nil
}

func writeSSEEvent(w io.Writer, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return writeSSEData(w, string(data))
}

func writeSSEData(w io.Writer, data string) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

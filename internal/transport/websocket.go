package transport

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/coder/websocket"

	"github.com/ashureev/wordchat/internal/chat"
	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/session"
)

// Turner runs one chat turn.
type Turner interface {
	Turn(ctx context.Context, sessionID, prompt string) (iter.Seq[domain.Event], error)
	Reset(sessionID string) error
}

// WebSocketHandler serves chat turns over a WebSocket, one turn at a time.
type WebSocketHandler struct {
	chat           Turner
	cm             *ConnManager
	allowedOrigins []string
}

// NewWebSocketHandler creates a WebSocketHandler. An origin list containing
// "*" accepts any origin.
func NewWebSocketHandler(svc Turner, cm *ConnManager, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{chat: svc, cm: cm, allowedOrigins: allowedOrigins}
}

// clientMessage is a frame sent by the client. A frame without a type is a chat prompt.
type clientMessage struct {
	Type   string `json:"type,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

const (
	msgChat  = "chat"
	msgPing  = "ping"
	msgReset = "reset"
)

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := session.NormalizeID(r.URL.Query().Get("sessionId"))
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.cm.Register(sessionID, ws)
	defer h.cm.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, sessionID)
	slog.Info("Chat socket ended", "session_id", sessionID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.allowedOrigins, "*") || slices.Contains(h.allowedOrigins, origin) {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigins)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			// Plain text frames are prompts.
			msg = clientMessage{Type: msgChat, Prompt: string(message)}
		}

		switch strings.ToLower(msg.Type) {
		case "", msgChat:
			if err := h.runTurn(ctx, ws, sessionID, msg.Prompt); err != nil {
				slog.Debug("Failed to stream turn", "error", err, "session_id", sessionID)
				return
			}
		case msgPing:
			if err := writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				return
			}
		case msgReset:
			if err := h.chat.Reset(sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
				slog.Warn("Failed to reset session", "error", err, "session_id", sessionID)
			}
			if err := writeJSON(ctx, ws, map[string]string{"type": "reset"}); err != nil {
				return
			}
		default:
			if err := writeJSON(ctx, ws, domain.ErrorEvent("unknown message type")); err != nil {
				return
			}
		}
	}
}

// runTurn streams one turn's events followed by the done sentinel.
// A non-nil error means the socket is unusable.
func (h *WebSocketHandler) runTurn(ctx context.Context, ws *websocket.Conn, sessionID, prompt string) error {
	events, err := h.chat.Turn(ctx, sessionID, prompt)
	if errors.Is(err, chat.ErrPromptRequired) {
		if err := writeJSON(ctx, ws, domain.ErrorEvent("Prompt is required")); err != nil {
			return err
		}
		return ws.Write(ctx, websocket.MessageText, []byte(domain.DoneSentinel))
	}
	if err != nil {
		return err
	}

	for e := range events {
		if err := writeJSON(ctx, ws, e); err != nil {
			return err
		}
	}
	return ws.Write(ctx, websocket.MessageText, []byte(domain.DoneSentinel))
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// Interface compliance check.
var (
	_ Client = (*Gemini)(nil)
	_ Pinger = (*Gemini)(nil)
)

// Gemini implements Client on top of the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// GeminiOption configures a Gemini client.
type GeminiOption func(*Gemini)

// WithModel sets the model id.
func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(logger *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGemini creates a Gemini client for the Gemini API backend.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key is required", ErrModelUnavailable)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	g := &Gemini{
		client: gc,
		model:  DefaultModel,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Model returns the configured model id.
func (g *Gemini) Model() string { return g.model }

// Ping fetches the configured model's metadata.
func (g *Gemini) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini: get model %s: %w", g.model, err)
	}
	return nil
}

// StartSession creates a new chat with empty history.
func (g *Gemini) StartSession(ctx context.Context) (Handle, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: start chat: %w", err)
	}
	return &geminiHandle{chat: chat, logger: g.logger}, nil
}

// SendOnce runs a single GenerateContent call and returns its text.
func (g *Gemini) SendOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp.Text(), nil
}

type geminiHandle struct {
	chat   *genai.Chat
	logger *slog.Logger
}

func (h *geminiHandle) SendStreaming(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		fragments := 0
		for resp, err := range h.chat.SendMessageStream(ctx, genai.Part{Text: text}) {
			if err != nil {
				yield("", fmt.Errorf("gemini: stream: %w", err))
				return
			}
			chunk := resp.Text()
			if chunk == "" {
				continue
			}
			fragments++
			if !yield(chunk, nil) {
				return
			}
		}
		h.logger.Debug("gemini stream complete", "fragments", fragments)
	}
}

// Package llm defines the boundary to the generative-language service and
// provides a Gemini implementation plus a scripted mock.
package llm

import (
	"context"
	"errors"
	"iter"
)

// ErrModelUnavailable indicates the model service cannot be reached or was not configured.
var ErrModelUnavailable = errors.New("model unavailable")

// Client starts conversational sessions and answers one-shot prompts.
type Client interface {
	// StartSession opens a fresh, empty conversational context.
	StartSession(ctx context.Context) (Handle, error)

	// SendOnce issues a single non-streaming prompt outside any session.
	SendOnce(ctx context.Context, prompt string) (string, error)
}

// Handle is one conversational context. It remembers earlier turns.
type Handle interface {
	// SendStreaming sends text and yields reply fragments as they arrive.
	// A failure is yielded once as the error value and ends the sequence.
	SendStreaming(ctx context.Context, text string) iter.Seq2[string, error]
}

// Pinger is implemented by clients that can report availability without generating text.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Package tui provides the Bubble Tea chat client with the scramble puzzle.
package tui

import (
	"context"
	"iter"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashureev/wordchat/internal/domain"
)

// ChatFunc streams the server's events for one prompt. The session is bound
// by the caller.
type ChatFunc func(ctx context.Context, prompt string) iter.Seq2[domain.Event, error]

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits or ctx is cancelled.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// StreamEventMsg carries one server event to the model.
type StreamEventMsg struct {
	kind  streamKind
	Event domain.Event
}

// StreamDoneMsg signals that a stream has ended.
type StreamDoneMsg struct {
	kind streamKind
	Err  error
}

// puzzleCompleteMsg fires after the completion delay of a solved puzzle.
type puzzleCompleteMsg struct{}

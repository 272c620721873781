package llm

import (
	"context"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"sync"
)

// Interface compliance check.
var (
	_ Client = (*MockClient)(nil)
	_ Pinger = (*MockClient)(nil)
)

// MockClient is a scripted Client for offline runs and tests.
type MockClient struct {
	mu       sync.Mutex
	once     func(prompt string) (string, error)
	stream   func(text string) ([]string, error)
	intent   func(message string) bool
	startErr error

	sessions int
	prompts  []string
	messages []string
}

// MockOption configures a MockClient.
type MockOption func(*MockClient)

// WithOnceReply sets the reply function for SendOnce.
func WithOnceReply(fn func(prompt string) (string, error)) MockOption {
	return func(m *MockClient) { m.once = fn }
}

// WithStreamReply sets the fragments produced for each streamed message.
// A non-nil error is yielded after the fragments.
func WithStreamReply(fn func(text string) ([]string, error)) MockOption {
	return func(m *MockClient) { m.stream = fn }
}

// WithIntentMatcher decides the default reply to YES/NO routing prompts.
// match receives the quoted user message; without it every routing prompt is answered NO.
func WithIntentMatcher(match func(message string) bool) MockOption {
	return func(m *MockClient) { m.intent = match }
}

// WithStartError makes StartSession fail.
func WithStartError(err error) MockOption {
	return func(m *MockClient) { m.startErr = err }
}

// NewMock returns a MockClient. Without options it echoes streamed messages
// word by word and answers one-shot prompts with a sample lesson or "NO".
func NewMock(opts ...MockOption) *MockClient {
	m := &MockClient{stream: defaultStreamReply}
	m.once = m.defaultOnceReply
	for _, o := range opts {
		o(m)
	}
	return m
}

// StartSession records a new session.
func (m *MockClient) StartSession(_ context.Context) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	m.sessions++
	return &mockHandle{parent: m}, nil
}

// Ping reports the StartSession error, if any.
func (m *MockClient) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startErr
}

// SendOnce records the prompt and returns the scripted reply.
func (m *MockClient) SendOnce(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fn := m.once
	m.mu.Unlock()
	return fn(prompt)
}

// Sessions returns how many sessions were started.
func (m *MockClient) Sessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions
}

// OncePrompts returns the prompts passed to SendOnce, in order.
func (m *MockClient) OncePrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// StreamedMessages returns every message sent through a session handle, in order.
func (m *MockClient) StreamedMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

type mockHandle struct {
	parent *MockClient
}

func (h *mockHandle) SendStreaming(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		h.parent.mu.Lock()
		h.parent.messages = append(h.parent.messages, text)
		fn := h.parent.stream
		h.parent.mu.Unlock()

		chunks, err := fn(text)
		for _, c := range chunks {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield("", ctxErr)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err != nil {
			yield("", err)
		}
	}
}

func defaultStreamReply(text string) ([]string, error) {
	reply := fmt.Sprintf("You said: %s", firstLine(text))
	words := strings.SplitAfter(reply, " ")
	return words, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// sampleLesson keeps offline mode usable end to end.
const sampleLesson = `{
  "word": "serendipity",
  "definition": "the luck of finding something good without looking for it",
  "partOfSpeech": "noun",
  "example": "Finding that old letter was pure serendipity.",
  "scrambleSentence": "Finding the cafe was a happy serendipity.",
  "comprehensionQuestion": "Which situation best shows serendipity?",
  "options": ["Planning a trip for months", "Bumping into an old friend abroad", "Losing your keys", "Studying for a test"],
  "correctAnswer": "Bumping into an old friend abroad"
}`

func (m *MockClient) defaultOnceReply(prompt string) (string, error) {
	if strings.Contains(prompt, "scrambleSentence") {
		return sampleLesson, nil
	}
	if m.intent != nil {
		if msg, ok := userMessage(prompt); ok && m.intent(msg) {
			return "YES", nil
		}
	}
	return "NO", nil
}

// userMessage extracts the quoted text of a `User message: "..."` line.
func userMessage(prompt string) (string, bool) {
	const label = "User message: "
	for line := range strings.Lines(prompt) {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), label)
		if !ok {
			continue
		}
		msg, err := strconv.Unquote(rest)
		if err != nil {
			return rest, true
		}
		return msg, true
	}
	return "", false
}

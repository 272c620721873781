package session

import (
	"sync"
	"unicode/utf8"
)

// DefaultTranscriptSize bounds the conversation tail kept per session.
const DefaultTranscriptSize = 2 * 1024

// Transcript is a fixed-size ring holding the most recent conversation text.
// Older bytes are overwritten once the ring is full.
type Transcript struct {
	buf  []byte
	size int
	head int
	tail int
	full bool
	mu   sync.RWMutex
}

// NewTranscript creates a ring of size bytes, DefaultTranscriptSize when size <= 0.
func NewTranscript(size int) *Transcript {
	if size <= 0 {
		size = DefaultTranscriptSize
	}
	return &Transcript{
		buf:  make([]byte, size),
		size: size,
	}
}

// Write implements io.Writer.
func (t *Transcript) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range p {
		if t.full {
			t.tail = (t.tail + 1) % t.size
		}
		t.buf[t.head] = b
		t.head = (t.head + 1) % t.size
		if t.head == t.tail {
			t.full = true
		}
	}
	return len(p), nil
}

// Append records one line of conversation attributed to speaker.
func (t *Transcript) Append(speaker, text string) {
	if text == "" {
		return
	}
	_, _ = t.Write([]byte(speaker + ": " + text + "\n"))
}

// String returns the retained text in write order. A rune cut in half by
// the ring boundary is dropped.
func (t *Transcript) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var raw []byte
	switch {
	case !t.full && t.head == t.tail:
		return ""
	case t.head > t.tail:
		raw = t.buf[t.tail:t.head]
	default:
		raw = make([]byte, 0, t.size)
		raw = append(raw, t.buf[t.tail:]...)
		raw = append(raw, t.buf[:t.head]...)
	}
	for len(raw) > 0 && !utf8.RuneStart(raw[0]) {
		raw = raw[1:]
	}
	return string(raw)
}

// Len returns the number of retained bytes.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	switch {
	case t.full:
		return t.size
	case t.head >= t.tail:
		return t.head - t.tail
	default:
		return (t.size - t.tail) + t.head
	}
}

// Reset clears the ring.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.head = 0
	t.tail = 0
	t.full = false
}

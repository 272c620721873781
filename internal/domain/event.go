package domain

// DoneSentinel terminates every chat stream.
const DoneSentinel = "[DONE]"

// Event is one payload of a chat stream. Exactly one field is set.
type Event struct {
	Chunk    string    `json:"chunk,omitempty"`
	WordGame *WordGame `json:"wordGame,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// ChunkEvent wraps a text fragment.
func ChunkEvent(text string) Event { return Event{Chunk: text} }

// WordGameEvent wraps a word game ready to be played.
func WordGameEvent(g *WordGame) Event { return Event{WordGame: g} }

// ErrorEvent wraps a failure message.
func ErrorEvent(msg string) Event { return Event{Error: msg} }

// IsChunk reports whether the event carries text.
func (e Event) IsChunk() bool { return e.Chunk != "" }

// IsWordGame reports whether the event carries a word game.
func (e Event) IsWordGame() bool { return e.WordGame != nil }

// IsError reports whether the event carries an error.
func (e Event) IsError() bool { return e.Error != "" }

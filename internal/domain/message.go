package domain

// Sender identifies who produced a chat message.
type Sender string

const (
	// SenderUser marks messages typed by the learner.
	SenderUser Sender = "user"
	// SenderAI marks messages streamed back from the model.
	SenderAI Sender = "ai"
)

// GameTypeWordScramble tags a message that hosts the word-scramble puzzle.
const GameTypeWordScramble = "wordScramble"

// Message is a single entry of the client-side transcript.
type Message struct {
	Text     string `json:"text"`
	Sender   Sender `json:"sender"`
	GameType string `json:"gameType,omitempty"`
}

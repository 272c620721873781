package domain

// SessionState is the learning state of a chat session.
type SessionState int

const (
	// StateIdle means no word game is waiting to be delivered.
	StateIdle SessionState = iota
	// StateAwaitingGameDelivery means a word game was generated and not yet handed to the client.
	StateAwaitingGameDelivery
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingGameDelivery:
		return "awaiting_game_delivery"
	default:
		return "unknown"
	}
}

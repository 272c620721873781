package domain

import "time"

// VocabularyEntry records a word game delivered to a session.
type VocabularyEntry struct {
	ID           int64     `json:"id"`
	SessionID    string    `json:"sessionId"`
	Word         string    `json:"word"`
	Definition   string    `json:"definition"`
	PartOfSpeech string    `json:"partOfSpeech"`
	Example      string    `json:"example"`
	DeliveredAt  time.Time `json:"deliveredAt"`
}

// NewVocabularyEntry builds an entry for game delivered to sessionID at t.
func NewVocabularyEntry(sessionID string, game *WordGame, t time.Time) *VocabularyEntry {
	return &VocabularyEntry{
		SessionID:    sessionID,
		Word:         game.Word,
		Definition:   game.Definition,
		PartOfSpeech: game.PartOfSpeech,
		Example:      game.Example,
		DeliveredAt:  t,
	}
}

// Package domain contains core domain types for the wordchat application.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// OptionCount is the number of multiple-choice options a comprehension question carries.
const OptionCount = 4

// ErrIncompleteWordGame is returned when a generated word game misses a required field.
var ErrIncompleteWordGame = errors.New("incomplete word game")

// WordGame is a vocabulary lesson payload: the word, its explanation, a
// comprehension quiz and the sentence used for the scramble puzzle.
type WordGame struct {
	Word                  string   `json:"word"`
	Definition            string   `json:"definition"`
	PartOfSpeech          string   `json:"partOfSpeech"`
	Example               string   `json:"example"`
	ScrambleSentence      string   `json:"scrambleSentence"`
	ComprehensionQuestion string   `json:"comprehensionQuestion"`
	Options               []string `json:"options"`
	CorrectAnswer         string   `json:"correctAnswer"`
}

// Validate reports whether every required field is present.
func (g *WordGame) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: nil game", ErrIncompleteWordGame)
	}
	required := []struct {
		name  string
		value string
	}{
		{"word", g.Word},
		{"definition", g.Definition},
		{"partOfSpeech", g.PartOfSpeech},
		{"example", g.Example},
		{"scrambleSentence", g.ScrambleSentence},
		{"comprehensionQuestion", g.ComprehensionQuestion},
		{"correctAnswer", g.CorrectAnswer},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: missing %s", ErrIncompleteWordGame, f.name)
		}
	}
	if len(g.Options) != OptionCount {
		return fmt.Errorf("%w: want %d options, got %d", ErrIncompleteWordGame, OptionCount, len(g.Options))
	}
	return nil
}

// Clone returns a deep copy so callers can hand the game out without sharing the options slice.
func (g *WordGame) Clone() *WordGame {
	if g == nil {
		return nil
	}
	c := *g
	c.Options = append([]string(nil), g.Options...)
	return &c
}

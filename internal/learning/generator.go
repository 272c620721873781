package learning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/wordchat/internal/domain"
)

// ErrNoJSON is returned when a model reply holds no brace-delimited object.
var ErrNoJSON = errors.New("no JSON object in response")

// Generator asks the model for a word-game bundle.
type Generator struct {
	model  Prompter
	logger *slog.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(model Prompter, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, logger: logger}
}

// Generate returns a word game for the prompt, or nil when the model fails
// or answers with something unusable. Callers continue with normal chat on nil.
func (g *Generator) Generate(ctx context.Context, promptContext string) *domain.WordGame {
	raw, err := g.model.SendOnce(ctx, generationPrompt(promptContext))
	if err != nil {
		g.logger.Warn("word game generation failed", "error", err)
		return nil
	}
	game, err := ParseWordGame(raw)
	if err != nil {
		g.logger.Warn("word game response unusable", "error", err, "response_length", len(raw))
		return nil
	}
	return game
}

// ExtractJSON returns the substring from the first '{' to the last '}'.
func ExtractJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// ParseWordGame extracts, decodes and validates a word game from a model reply.
func ParseWordGame(raw string) (*domain.WordGame, error) {
	obj, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var game domain.WordGame
	if err := json.Unmarshal([]byte(obj), &game); err != nil {
		return nil, fmt.Errorf("decode word game: %w", err)
	}
	if err := game.Validate(); err != nil {
		return nil, err
	}
	return &game, nil
}

func generationPrompt(promptContext string) string {
	var b strings.Builder
	b.WriteString("Create a vocabulary lesson for an English learner.\n")
	fmt.Fprintf(&b, "The learner wrote: %q\n", promptContext)
	b.WriteString("If the learner named a word, use that word; otherwise pick a useful intermediate word.\n")
	b.WriteString("Return ONLY a JSON object with exactly these fields:\n")
	b.WriteString(`{
  "word": "the word",
  "definition": "a short learner-friendly definition",
  "partOfSpeech": "noun, verb, adjective, ...",
  "example": "an example sentence using the word",
  "scrambleSentence": "a different simple sentence of 5 to 10 words using the word",
  "comprehensionQuestion": "a multiple-choice question checking understanding",
  "options": ["option 1", "option 2", "option 3", "option 4"],
  "correctAnswer": "the option text that is correct"
}`)
	b.WriteString("\nDo not wrap the JSON in markdown and do not add commentary.")
	return b.String()
}

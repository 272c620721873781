// Package learning decides when a chat turn should become a vocabulary
// lesson and produces the lesson content.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Prompter sends a single non-streaming prompt to the model.
type Prompter interface {
	SendOnce(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether a prompt asks to learn a word.
type Classifier interface {
	Classify(ctx context.Context, priorContext, prompt string) bool
}

// DefaultKeywords are the learning-intent phrases matched by KeywordClassifier.
var DefaultKeywords = []string{
	"learn word",
	"learn a word",
	"learn a new word",
	"teach me a word",
	"teach me a new word",
	"new word",
	"word of the day",
	"vocabulary",
	"definition of",
	"define",
	"meaning of",
	"synonym",
	"antonym",
	"word game",
	"practice words",
}

// KeywordClassifier matches prompts against a fixed phrase list.
type KeywordClassifier struct {
	keywords []string
}

// NewKeywordClassifier returns a classifier over keywords, or DefaultKeywords when empty.
func NewKeywordClassifier(keywords []string) *KeywordClassifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	return &KeywordClassifier{keywords: normalized}
}

// Keywords returns the normalized phrase list.
func (c *KeywordClassifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// Match reports whether prompt contains any keyword, ignoring case.
func (c *KeywordClassifier) Match(prompt string) bool {
	lower := strings.ToLower(prompt)
	for _, k := range c.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Classify implements Classifier. The prior context is ignored.
func (c *KeywordClassifier) Classify(_ context.Context, _ string, prompt string) bool {
	return c.Match(prompt)
}

// ModelClassifier asks the model for a YES/NO verdict and falls back to
// keyword matching when the call fails.
type ModelClassifier struct {
	model    Prompter
	fallback *KeywordClassifier
	logger   *slog.Logger
}

// NewModelClassifier creates a model-backed classifier.
func NewModelClassifier(model Prompter, fallback *KeywordClassifier, logger *slog.Logger) *ModelClassifier {
	if fallback == nil {
		fallback = NewKeywordClassifier(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelClassifier{model: model, fallback: fallback, logger: logger}
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, priorContext, prompt string) bool {
	answer, err := c.model.SendOnce(ctx, classificationPrompt(priorContext, prompt))
	if err != nil {
		c.logger.Warn("learning classifier failed, using keyword fallback", "error", err)
		return c.fallback.Match(prompt)
	}
	return strings.ToUpper(strings.TrimSpace(answer)) == "YES"
}

func classificationPrompt(priorContext, prompt string) string {
	var b strings.Builder
	b.WriteString("You are routing messages in a language-learning chat.\n")
	b.WriteString("Decide whether the user wants to learn, define, or practice a vocabulary word.\n")
	if ctx := strings.TrimSpace(priorContext); ctx != "" {
		fmt.Fprintf(&b, "Recent conversation:\n%s\n", ctx)
	}
	fmt.Fprintf(&b, "User message: %q\n", prompt)
	b.WriteString("Respond with exactly YES or NO.")
	return b.String()
}

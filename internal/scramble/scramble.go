// Package scramble implements the word-ordering practice puzzle: a sentence
// is split into shuffled tokens that the learner puts back in order.
package scramble

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Result messages shown to the learner.
const (
	CorrectMessage   = "Correct! Well done!"
	IncorrectMessage = "Not quite right. Try again!"
)

// CompletionDelay separates a correct answer from the completion callback.
const CompletionDelay = 1500 * time.Millisecond

const punctuation = `.,!?;:'"()`

// ErrIndexOutOfRange is returned by Select and Deselect for a bad position.
var ErrIndexOutOfRange = errors.New("token index out of range")

// Verdict is the outcome of the last full attempt.
type Verdict int

const (
	// Pending means no full attempt has been judged since the last change.
	Pending Verdict = iota
	Correct
	Incorrect
)

// Message returns the text shown for v, empty while pending.
func (v Verdict) Message() string {
	switch v {
	case Correct:
		return CorrectMessage
	case Incorrect:
		return IncorrectMessage
	default:
		return ""
	}
}

// StripPunctuation removes the characters .,!?;:'"() from s.
func StripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// Tokenize splits a sentence on whitespace, strips punctuation from each
// token and drops tokens that become empty.
func Tokenize(sentence string) []string {
	fields := strings.Fields(sentence)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := StripPunctuation(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// normalize is the form both sides take for the equality check.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(StripPunctuation(s))), " ")
}

// Game is one scramble puzzle. It is safe for concurrent use.
type Game struct {
	mu         sync.Mutex
	sentence   string
	reference  string
	required   int
	available  []string
	selected   []string
	verdict    Verdict
	rng        *rand.Rand
	onComplete func(bool)
	afterFunc  func(time.Duration, func())
	delay      time.Duration
}

// Option configures a Game.
type Option func(*Game)

// WithRand sets the shuffle source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rng = r }
}

// WithOnComplete registers fn to run CompletionDelay after a correct answer.
func WithOnComplete(fn func(bool)) Option {
	return func(g *Game) { g.onComplete = fn }
}

// WithDelay overrides CompletionDelay.
func WithDelay(d time.Duration) Option {
	return func(g *Game) { g.delay = d }
}

// New creates a puzzle for sentence with its tokens shuffled.
func New(sentence string, opts ...Option) *Game {
	g := &Game{
		sentence:  sentence,
		reference: normalize(sentence),
		// Completion fires on the raw whitespace token count, so tokens made
		// only of punctuation keep a puzzle from ever being judged.
		required: len(strings.Fields(sentence)),
		delay:    CompletionDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, o := range opts {
		o(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	g.shuffle()
	return g
}

func (g *Game) shuffle() {
	g.available = Tokenize(g.sentence)
	g.rng.Shuffle(len(g.available), func(i, j int) {
		g.available[i], g.available[j] = g.available[j], g.available[i]
	})
	g.selected = nil
	g.verdict = Pending
}

// Sentence returns the reference sentence.
func (g *Game) Sentence() string { return g.sentence }

// Available returns the tokens not yet placed, in display order.
func (g *Game) Available() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.available...)
}

// Selected returns the placed tokens, in order.
func (g *Game) Selected() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.selected...)
}

// Verdict returns the outcome of the last full attempt.
func (g *Game) Verdict() Verdict {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verdict
}

// Select moves available token i to the end of the selection. Once the
// selection is as long as the sentence the attempt is judged.
func (g *Game) Select(i int) (Verdict, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if i < 0 || i >= len(g.available) {
		return g.verdict, ErrIndexOutOfRange
	}
	g.selected = append(g.selected, g.available[i])
	g.available = append(g.available[:i], g.available[i+1:]...)

	if len(g.selected) == g.required {
		g.judge()
	}
	return g.verdict, nil
}

// Deselect returns selected token i to the end of the available tokens and
// clears the verdict.
func (g *Game) Deselect(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if i < 0 || i >= len(g.selected) {
		return ErrIndexOutOfRange
	}
	g.available = append(g.available, g.selected[i])
	g.selected = append(g.selected[:i], g.selected[i+1:]...)
	g.verdict = Pending
	return nil
}

// Reset reshuffles the full token set and clears the selection and verdict.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.shuffle()
}

func (g *Game) judge() {
	if normalize(strings.Join(g.selected, " ")) == g.reference {
		g.verdict = Correct
		if g.onComplete != nil {
			fn := g.onComplete
			g.afterFunc(g.delay, func() { fn(true) })
		}
		return
	}
	g.verdict = Incorrect
}

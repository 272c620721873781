package tui

import (
	"context"
	"errors"
	"iter"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/wordchat/internal/client"
	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/scramble"
)

func nopChat(context.Context, string) iter.Seq2[domain.Event, error] {
	return func(func(domain.Event, error) bool) {}
}

func lesson() *domain.WordGame {
	return &domain.WordGame{
		Word:                  "brave",
		Definition:            "ready to face danger",
		PartOfSpeech:          "adjective",
		Example:               "A brave firefighter.",
		ScrambleSentence:      "Hello, brave new world!",
		ComprehensionQuestion: "Who is brave?",
		Options:               []string{"a", "b", "c", "d"},
		CorrectAnswer:         "a",
	}
}

func initModel(t *testing.T, opts ...Option) Model {
	t.Helper()
	opts = append([]Option{WithScrambleOptions(scramble.WithRand(rand.New(rand.NewPCG(7, 7))))}, opts...)
	m := New(nopChat, opts...)
	return update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	m, _ = updateCmd(t, m, msg)
	return m
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	model, ok := updated.(Model)
	require.True(t, ok)
	return model, cmd
}

func typeAndSubmit(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.Input.SetValue(text)
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	return m
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNew(t *testing.T) {
	m := New(nopChat)
	assert.False(t, m.Submitting())
	assert.False(t, m.Learning())
	assert.Nil(t, m.Puzzle())
	assert.Equal(t, "Initializing...", m.View())
}

func TestWindowSize(t *testing.T) {
	m := initModel(t)
	assert.Equal(t, 80, m.Viewport.Width)
	assert.Equal(t, 20, m.Viewport.Height)

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Equal(t, 100, m.Viewport.Width)
	assert.Equal(t, 26, m.Viewport.Height)
	assert.Contains(t, m.View(), "Ctrl+L")
}

func TestSubmit_StreamsIntoOneMessage(t *testing.T) {
	m := initModel(t)
	m = typeAndSubmit(t, m, "  hi there ")

	require.True(t, m.Submitting())
	assert.Empty(t, m.Input.Value())
	assert.Contains(t, m.renderContent(), thinkingText)

	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ChunkEvent("Hello ")})
	assert.NotContains(t, m.renderContent(), thinkingText)
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ChunkEvent("world")})
	m = update(t, m, StreamDoneMsg{kind: kindSubmit})

	assert.False(t, m.Submitting())
	assert.Equal(t, []domain.Message{
		{Text: "hi there", Sender: domain.SenderUser},
		{Text: "Hello world", Sender: domain.SenderAI},
	}, m.Messages())
}

func TestSubmit_IgnoresBlankAndBusy(t *testing.T) {
	m := initModel(t)
	m.Input.SetValue("   ")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, m.Messages())

	m = typeAndSubmit(t, m, "first")
	m.Input.SetValue("second")
	m, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Len(t, m.Messages(), 1)
}

func TestLearn_SeparateLifecycle(t *testing.T) {
	m := initModel(t)
	m = typeAndSubmit(t, m, "hello")

	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	assert.True(t, m.Submitting())
	assert.True(t, m.Learning())

	_, cmd = updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Nil(t, cmd, "second learn request while one is running")

	// Interleaved chunks land in each stream's own reply.
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ChunkEvent("chat ")})
	m = update(t, m, StreamEventMsg{kind: kindLearn, Event: domain.ChunkEvent("lesson ")})
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ChunkEvent("reply")})
	m = update(t, m, StreamEventMsg{kind: kindLearn, Event: domain.ChunkEvent("text")})
	m = update(t, m, StreamDoneMsg{kind: kindLearn})

	assert.True(t, m.Submitting())
	assert.False(t, m.Learning())
	msgs := m.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, LearnPrompt, msgs[1].Text)
	assert.Equal(t, "chat reply", msgs[2].Text)
	assert.Equal(t, "lesson text", msgs[3].Text)
}

func TestStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status error", &client.StatusError{Code: 400, Message: "Prompt is required"}, "Error: Prompt is required"},
		{"transport error", errors.New("connection refused"), genericError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := typeAndSubmit(t, initModel(t), "hi")
			m = update(t, m, StreamDoneMsg{kind: kindSubmit, Err: tt.err})

			msgs := m.Messages()
			assert.Equal(t, tt.want, msgs[len(msgs)-1].Text)
			assert.Error(t, m.Err())
			assert.False(t, m.Submitting())
		})
	}
}

func TestStreamErrorEvent(t *testing.T) {
	m := typeAndSubmit(t, initModel(t), "hi")
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ErrorEvent("Failed to generate content")})

	msgs := m.Messages()
	assert.Equal(t, "Error: Failed to generate content", msgs[len(msgs)-1].Text)
}

func TestCancelledStreamIsSilent(t *testing.T) {
	m := typeAndSubmit(t, initModel(t), "hi")
	m, cmd := updateCmd(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "ctrl+c cancels instead of quitting while streaming")

	m = update(t, m, StreamDoneMsg{kind: kindSubmit, Err: context.Canceled})
	assert.NoError(t, m.Err())
	assert.Len(t, m.Messages(), 1)
}

func mountLesson(t *testing.T, m Model) Model {
	t.Helper()
	m = typeAndSubmit(t, m, "define brave")
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.ChunkEvent("Let's learn.")})
	m = update(t, m, StreamEventMsg{kind: kindSubmit, Event: domain.WordGameEvent(lesson())})
	m = update(t, m, StreamDoneMsg{kind: kindSubmit})
	require.NotNil(t, m.Puzzle())
	return m
}

func pressWord(t *testing.T, m Model, word string) (Model, tea.Cmd) {
	t.Helper()
	i := slices.Index(m.Puzzle().Available(), word)
	require.GreaterOrEqual(t, i, 0)
	return updateCmd(t, m, keyRune(rune('1'+i)))
}

func TestPuzzle_MountsOnWordGame(t *testing.T) {
	m := mountLesson(t, initModel(t))

	msgs := m.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, domain.GameTypeWordScramble, last.GameType)
	assert.Contains(t, last.Text, "brave")
	assert.ElementsMatch(t, []string{"Hello", "brave", "new", "world"}, m.Puzzle().Available())
	assert.Contains(t, m.View(), "Your sentence")
}

func TestPuzzle_SolveShowsSuccessAfterDelay(t *testing.T) {
	m := mountLesson(t, initModel(t, WithCompletionDelay(time.Millisecond)))

	var cmd tea.Cmd
	for _, w := range []string{"Hello", "brave", "new"} {
		m, cmd = pressWord(t, m, w)
		assert.Nil(t, cmd)
	}
	m, cmd = pressWord(t, m, "world")
	require.NotNil(t, cmd)
	assert.Equal(t, scramble.Correct, m.Puzzle().Verdict())
	assert.Contains(t, m.renderContent(), scramble.CorrectMessage)

	msg := cmd()
	require.IsType(t, puzzleCompleteMsg{}, msg)
	m = update(t, m, msg)

	assert.Nil(t, m.Puzzle())
	msgs := m.Messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "Great job")
}

func TestPuzzle_WrongOrderThenReshuffle(t *testing.T) {
	m := mountLesson(t, initModel(t))

	var cmd tea.Cmd
	for _, w := range []string{"world", "new", "brave", "Hello"} {
		m, cmd = pressWord(t, m, w)
		assert.Nil(t, cmd)
	}
	assert.Equal(t, scramble.Incorrect, m.Puzzle().Verdict())
	assert.Contains(t, m.renderContent(), scramble.IncorrectMessage)

	m = update(t, m, keyRune('r'))
	assert.Equal(t, scramble.Pending, m.Puzzle().Verdict())
	assert.Len(t, m.Puzzle().Available(), 4)
	assert.Empty(t, m.Puzzle().Selected())
}

func TestPuzzle_BackspaceDeselects(t *testing.T) {
	m := mountLesson(t, initModel(t))
	m, _ = pressWord(t, m, "new")
	m, _ = pressWord(t, m, "Hello")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})

	assert.Equal(t, []string{"new"}, m.Puzzle().Selected())
	assert.Equal(t, "Hello", m.Puzzle().Available()[len(m.Puzzle().Available())-1])
}

func TestPuzzle_FocusToggle(t *testing.T) {
	m := mountLesson(t, initModel(t))
	assert.Contains(t, m.statusLine(), "reshuffle")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, keyRune('1'))
	assert.Empty(t, m.Puzzle().Selected(), "digits go to the input while it has focus")
	assert.Equal(t, "1", m.Input.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Len(t, m.Puzzle().Selected(), 1)
}

func TestStartStream(t *testing.T) {
	chat := func(ctx context.Context, prompt string) iter.Seq2[domain.Event, error] {
		return func(yield func(domain.Event, error) bool) {
			if !yield(domain.ChunkEvent(strings.ToUpper(prompt)), nil) {
				return
			}
			yield(domain.Event{}, errors.New("boom"))
		}
	}
	events := make(chan domain.Event, 4)
	done := make(chan error, 1)

	assert.Nil(t, startStream(context.Background(), chat, "hi", events, done)())

	var got []domain.Event
	for e := range events {
		got = append(got, e)
	}
	assert.Equal(t, []domain.Event{domain.ChunkEvent("HI")}, got)
	assert.EqualError(t, <-done, "boom")
}

func TestListenForEvent(t *testing.T) {
	events := make(chan domain.Event, 1)
	done := make(chan error, 1)
	events <- domain.ChunkEvent("x")

	msg := listenForEvent(kindLearn, events, done)()
	assert.Equal(t, StreamEventMsg{kind: kindLearn, Event: domain.ChunkEvent("x")}, msg)

	close(events)
	done <- nil
	msg = listenForEvent(kindLearn, events, done)()
	assert.Equal(t, StreamDoneMsg{kind: kindLearn}, msg)
}

func TestWithLesson_MountsAtStartup(t *testing.T) {
	m := initModel(t, WithLesson(&domain.WordGame{ScrambleSentence: "one two"}))

	require.NotNil(t, m.Puzzle())
	assert.Equal(t, "Practice time! Put the words back in order.", m.Messages()[0].Text)

	m, _ = pressWord(t, m, "one")
	m, cmd := pressWord(t, m, "two")
	require.NotNil(t, cmd)
	m = update(t, m, puzzleCompleteMsg{})
	msgs := m.Messages()
	assert.Equal(t, "Great job! You solved the sentence.", msgs[len(msgs)-1].Text)
}

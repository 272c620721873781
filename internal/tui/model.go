package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashureev/wordchat/internal/client"
	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/scramble"
)

// LearnPrompt is sent by the learn shortcut.
const LearnPrompt = "Teach me a new word"

const (
	thinkingText = "Thinking..."
	genericError = "Sorry, something went wrong."
)

var _ tea.Model = Model{}

type streamKind int

const (
	kindSubmit streamKind = iota
	kindLearn
	kindCount
)

// stream is the lifecycle of one outstanding request. Submit and learn
// each own one, so both may run at once.
type stream struct {
	running bool
	cancel  context.CancelFunc
	events  chan domain.Event
	done    chan error
	reply   int // index of this stream's ai message, -1 before the first chunk
}

type focus int

const (
	focusInput focus = iota
	focusPuzzle
)

type row int

const (
	rowAvailable row = iota
	rowSelected
)

// Model is the Bubble Tea model for the wordchat client.
type Model struct {
	// Input is the prompt field. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable transcript. Exported for test access.
	Viewport viewport.Model

	chat   ChatFunc
	styles Styles

	messages []domain.Message
	streams  [kindCount]stream
	err      error
	ready    bool
	focus    focus

	lesson       *domain.WordGame
	puzzle       *scramble.Game
	puzzleOpts   []scramble.Option
	cursorRow    row
	cursor       int
	completing   bool
	completeWait time.Duration
	initial      *domain.WordGame
}

// Option configures a Model.
type Option func(*Model)

// WithScrambleOptions passes options to every puzzle the model mounts.
func WithScrambleOptions(opts ...scramble.Option) Option {
	return func(m *Model) { m.puzzleOpts = opts }
}

// WithCompletionDelay overrides the pause between a solved puzzle and the
// success message.
func WithCompletionDelay(d time.Duration) Option {
	return func(m *Model) { m.completeWait = d }
}

// WithLesson mounts the puzzle of game at startup.
func WithLesson(game *domain.WordGame) Option {
	return func(m *Model) { m.initial = game }
}

// New creates a Model that sends prompts through chat.
func New(chat ChatFunc, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = client.MaxPromptLength
	ti.Focus()

	m := Model{
		Input:        ti,
		chat:         chat,
		styles:       NewStyles(),
		completeWait: scramble.CompletionDelay,
	}
	for i := range m.streams {
		m.streams[i].reply = -1
	}
	for _, o := range opts {
		o(&m)
	}
	if m.initial != nil {
		m = m.mountPuzzle(m.initial)
	}
	return m
}

// Messages returns the transcript.
func (m Model) Messages() []domain.Message {
	return append([]domain.Message(nil), m.messages...)
}

// Submitting reports whether a typed prompt is streaming.
func (m Model) Submitting() bool { return m.streams[kindSubmit].running }

// Learning reports whether a learn request is streaming.
func (m Model) Learning() bool { return m.streams[kindLearn].running }

// Puzzle returns the mounted scramble puzzle, or nil.
func (m Model) Puzzle() *scramble.Game { return m.puzzle }

// Err returns the last stream error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		m = m.processEvent(msg.kind, msg.Event).refresh()
		if s := m.streams[msg.kind]; s.events != nil {
			return m, listenForEvent(msg.kind, s.events, s.done)
		}
		return m, nil

	case StreamDoneMsg:
		m = m.finishStream(msg.kind, msg.Err).refresh()
		if m.focus == focusInput && !m.Submitting() {
			cmd := m.Input.Focus()
			return m, cmd
		}
		return m, nil

	case puzzleCompleteMsg:
		m = m.completePuzzle().refresh()
		cmd := m.Input.Focus()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if m.focus == focusInput && !m.Submitting() {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusH := 1
	gaps := 2
	vpHeight := max(msg.Height-inputH-statusH-gaps, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.Submitting() || m.Learning() {
			for i := range m.streams {
				if m.streams[i].cancel != nil {
					m.streams[i].cancel()
				}
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyTab:
		if m.puzzle == nil {
			return m, nil
		}
		if m.focus == focusPuzzle {
			m.focus = focusInput
			cmd := m.Input.Focus()
			return m.refresh(), cmd
		}
		m.focus = focusPuzzle
		m.Input.Blur()
		return m.refresh(), nil

	case tea.KeyCtrlL:
		if m.Learning() {
			return m, nil
		}
		return m.startRequest(kindLearn, LearnPrompt)
	}

	if m.focus == focusPuzzle {
		return m.handlePuzzleKey(msg)
	}

	if msg.Type == tea.KeyEnter {
		if m.Submitting() {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.startRequest(kindSubmit, text)
	}

	if m.Submitting() {
		return m, nil
	}
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) startRequest(kind streamKind, text string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.messages = append(m.messages, domain.Message{Text: text, Sender: domain.SenderUser})

	ctx, cancel := context.WithCancel(context.Background())
	s := stream{
		running: true,
		cancel:  cancel,
		events:  make(chan domain.Event, 64),
		done:    make(chan error, 1),
		reply:   -1,
	}
	m.streams[kind] = s

	if kind == kindSubmit {
		m.Input.SetValue("")
		m.Input.Blur()
	}

	return m.refresh(), tea.Batch(
		startStream(ctx, m.chat, text, s.events, s.done),
		listenForEvent(kind, s.events, s.done),
	)
}

// processEvent applies one server event. Chunks extend the stream's own ai
// message in place.
func (m Model) processEvent(kind streamKind, e domain.Event) Model {
	s := &m.streams[kind]
	switch {
	case e.IsChunk():
		if s.reply < 0 {
			m.messages = append(m.messages, domain.Message{Sender: domain.SenderAI})
			s.reply = len(m.messages) - 1
		}
		m.messages[s.reply].Text += e.Chunk
	case e.IsWordGame():
		m = m.mountPuzzle(e.WordGame)
	case e.IsError():
		m.messages = append(m.messages, domain.Message{Text: "Error: " + e.Error, Sender: domain.SenderAI})
	}
	return m
}

func (m Model) finishStream(kind streamKind, err error) Model {
	if m.streams[kind].cancel != nil {
		m.streams[kind].cancel()
	}
	m.streams[kind] = stream{reply: -1}

	if err == nil || errors.Is(err, context.Canceled) {
		return m
	}
	m.err = err
	text := genericError
	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		text = "Error: " + se.Message
	}
	m.messages = append(m.messages, domain.Message{Text: text, Sender: domain.SenderAI})
	return m
}

func (m Model) mountPuzzle(game *domain.WordGame) Model {
	m.lesson = game
	m.puzzle = scramble.New(game.ScrambleSentence, m.puzzleOpts...)
	m.cursorRow = rowAvailable
	m.cursor = 0
	m.completing = false
	intro := "Practice time! Put the words back in order."
	if game.Word != "" {
		intro = fmt.Sprintf("Practice time! Put the words back in order to use %q in a sentence.", game.Word)
	}
	m.messages = append(m.messages, domain.Message{
		Text:     intro,
		Sender:   domain.SenderAI,
		GameType: domain.GameTypeWordScramble,
	})
	m.focus = focusPuzzle
	m.Input.Blur()
	return m
}

func (m Model) handlePuzzleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.completing {
		return m, nil
	}
	g := m.puzzle

	switch msg.Type {
	case tea.KeyEsc:
		m.focus = focusInput
		cmd := m.Input.Focus()
		return m.refresh(), cmd
	case tea.KeyLeft:
		m.cursor--
	case tea.KeyRight:
		m.cursor++
	case tea.KeyUp:
		m.cursorRow = rowAvailable
	case tea.KeyDown:
		m.cursorRow = rowSelected
	case tea.KeyBackspace:
		if n := len(g.Selected()); n > 0 {
			_ = g.Deselect(n - 1)
		}
	case tea.KeyEnter, tea.KeySpace:
		if m.cursorRow == rowSelected {
			_ = g.Deselect(m.cursor)
		} else {
			return m.selectToken(m.cursor)
		}
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			break
		}
		switch r := msg.Runes[0]; {
		case r >= '1' && r <= '9':
			return m.selectToken(int(r - '1'))
		case r == 'r':
			g.Reset()
			m.cursorRow = rowAvailable
			m.cursor = 0
		}
	}
	return m.clampCursor().refresh(), nil
}

func (m Model) selectToken(i int) (tea.Model, tea.Cmd) {
	v, err := m.puzzle.Select(i)
	m = m.clampCursor().refresh()
	if err != nil || v != scramble.Correct {
		return m, nil
	}
	m.completing = true
	return m, tea.Tick(m.completeWait, func(time.Time) tea.Msg { return puzzleCompleteMsg{} })
}

func (m Model) completePuzzle() Model {
	if m.puzzle == nil {
		return m
	}
	word := m.lesson.Word
	m.puzzle = nil
	m.lesson = nil
	m.completing = false
	m.focus = focusInput
	text := "Great job! You solved the sentence."
	if word != "" {
		text = fmt.Sprintf("Great job! You practiced the word %q.", word)
	}
	m.messages = append(m.messages, domain.Message{Text: text, Sender: domain.SenderAI})
	return m
}

func (m Model) clampCursor() Model {
	n := len(m.puzzle.Available())
	if m.cursorRow == rowSelected {
		n = len(m.puzzle.Selected())
	}
	m.cursor = min(max(m.cursor, 0), max(n-1, 0))
	return m
}

func (m Model) refresh() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	width := m.Viewport.Width
	var b strings.Builder
	for i, msg := range m.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg, width))
	}
	if m.thinking() {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.styles.Muted.Render(thinkingText))
	}
	if m.puzzle != nil {
		b.WriteString("\n\n")
		b.WriteString(m.renderPuzzle())
	}
	return b.String()
}

func (m Model) renderMessage(msg domain.Message, width int) string {
	style := m.styles.AI
	prefix := "AI: "
	switch {
	case msg.Sender == domain.SenderUser:
		style = m.styles.User
		prefix = "You: "
	case msg.GameType != "":
		style = m.styles.Game
	case strings.HasPrefix(msg.Text, "Error: ") || msg.Text == genericError:
		style = m.styles.Error
	}
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(prefix + msg.Text)
}

// thinking reports whether a stream is waiting for its first chunk.
func (m Model) thinking() bool {
	for _, s := range m.streams {
		if s.running && s.reply < 0 {
			return true
		}
	}
	return false
}

func (m Model) renderPuzzle() string {
	g := m.puzzle
	var b strings.Builder

	b.WriteString(m.styles.Muted.Render("Available: "))
	for i, w := range g.Available() {
		style := m.styles.Token
		if m.focus == focusPuzzle && m.cursorRow == rowAvailable && i == m.cursor {
			style = m.styles.TokenCursor
		}
		label := w
		if i < 9 {
			label = fmt.Sprintf("%d:%s", i+1, w)
		}
		b.WriteString(style.Render(label))
	}
	b.WriteString("\n")

	b.WriteString(m.styles.Muted.Render("Your sentence: "))
	for i, w := range g.Selected() {
		style := m.styles.Placed
		if m.focus == focusPuzzle && m.cursorRow == rowSelected && i == m.cursor {
			style = m.styles.TokenCursor
		}
		b.WriteString(style.Render(w))
	}

	switch v := g.Verdict(); v {
	case scramble.Correct:
		b.WriteString("\n")
		b.WriteString(m.styles.Success.Render(v.Message()))
	case scramble.Incorrect:
		b.WriteString("\n")
		b.WriteString(m.styles.Error.Render(v.Message()))
		b.WriteString(m.styles.Muted.Render(" (press r to reshuffle)"))
	}
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.focus == focusPuzzle {
		return m.styles.Muted.Render("1-9 pick, arrows move, enter toggle, backspace undo, r reshuffle, tab/esc to chat")
	}
	if m.puzzle != nil {
		return m.styles.Muted.Render("Tab to return to the puzzle, Ctrl+C to quit")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+L to learn a word, Ctrl+C to quit")
}

// startStream pumps the events of one request into events, then reports
// the outcome on done.
func startStream(ctx context.Context, chat ChatFunc, prompt string, events chan<- domain.Event, done chan<- error) tea.Cmd {
	return func() tea.Msg {
		var streamErr error
	loop:
		for e, err := range chat(ctx, prompt) {
			if err != nil {
				streamErr = err
				break
			}
			select {
			case events <- e:
			case <-ctx.Done():
				streamErr = ctx.Err()
				break loop
			}
		}
		close(events)
		done <- streamErr
		return nil
	}
}

// listenForEvent waits for the next event of a stream. When the channel
// closes it returns StreamDoneMsg.
func listenForEvent(kind streamKind, events <-chan domain.Event, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return StreamDoneMsg{kind: kind, Err: <-done}
		}
		return StreamEventMsg{kind: kind, Event: e}
	}
}

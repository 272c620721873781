// Package chat runs one conversational turn per request: it classifies the
// prompt, frames lessons for the session's chat handle and streams the reply
// as events.
package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/learning"
	"github.com/ashureev/wordchat/internal/llm"
	"github.com/ashureev/wordchat/internal/session"
	"github.com/ashureev/wordchat/internal/store"
	"github.com/ashureev/wordchat/internal/transcript"
)

// ErrPromptRequired is returned for a blank prompt. No stream is opened.
var ErrPromptRequired = errors.New("prompt is required")

// FailureMessage is the client-visible text of an error event. Details stay in the logs.
const FailureMessage = "Failed to generate content"

// DefaultLessonTTL is how long a generated game waits for delivery before it is abandoned.
const DefaultLessonTTL = 10 * time.Minute

// Generator produces word games. A nil game means "continue with normal chat".
type Generator interface {
	Generate(ctx context.Context, promptContext string) *domain.WordGame
}

// Options carries the optional collaborators of a Service.
type Options struct {
	LessonTTL  time.Duration
	History    store.Repository
	Transcript transcript.Logger
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service is the chat orchestrator.
type Service struct {
	model      llm.Client
	classifier learning.Classifier
	generator  Generator
	sessions   session.Store
	history    store.Repository
	log        transcript.Logger
	logger     *slog.Logger
	lessonTTL  time.Duration
	now        func() time.Time
}

// NewService creates a Service. generator may be nil to disable lessons.
func NewService(model llm.Client, classifier learning.Classifier, generator Generator, sessions session.Store, opts Options) *Service {
	s := &Service{
		model:      model,
		classifier: classifier,
		generator:  generator,
		sessions:   sessions,
		history:    opts.History,
		log:        opts.Transcript,
		logger:     opts.Logger,
		lessonTTL:  opts.LessonTTL,
		now:        opts.Now,
	}
	if s.log == nil {
		s.log = transcript.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.lessonTTL <= 0 {
		s.lessonTTL = DefaultLessonTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Turn validates the prompt and returns the event stream of one turn.
// Turns for the same session run one at a time; the stream holds the
// session lock until it is drained or abandoned. Cancelling ctx stops
// generation.
func (s *Service) Turn(ctx context.Context, sessionID, prompt string) (iter.Seq[domain.Event], error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	sessionID = session.NormalizeID(sessionID)

	return func(yield func(domain.Event) bool) {
		sess := s.sessions.GetOrCreate(sessionID)
		sess.Lock()
		defer sess.Unlock()

		s.runTurn(ctx, sess, prompt, yield)
	}, nil
}

// turnPlan is what a turn sends to the chat handle and whether the pending
// game goes out after the reply.
type turnPlan struct {
	mode       string
	message    string
	attachGame bool
}

const (
	modeChat         = "chat"
	modeTeaching     = "teaching"
	modeContinuation = "continuation"
)

func (s *Service) runTurn(ctx context.Context, sess *session.Session, prompt string, yield func(domain.Event) bool) {
	turnID := uuid.NewString()
	reqID := chiMiddleware.GetReqID(ctx)
	logger := s.logger.With("session_id", sess.ID, "turn_id", turnID)

	s.logMessage(sess.ID, "outbound", transcript.EventUserMessage, prompt, map[string]any{
		"request_id": reqID,
		"turn_id":    turnID,
	})

	handle, err := s.ensureHandle(ctx, sess)
	if err != nil {
		logger.Error("Failed to start chat session", "error", err)
		yield(domain.ErrorEvent(FailureMessage))
		return
	}

	plan := s.plan(ctx, sess, prompt, logger)
	logger.Info("Chat turn",
		"mode", plan.mode,
		"state", sess.State().String(),
		"prompt_length", len(prompt),
	)

	filter := newMarkerFilter(learning.PracticeMarker)
	var reply strings.Builder
	chunks := 0
	streamErr := ""

	emit := func(text string) bool {
		if text == "" {
			return true
		}
		chunks++
		reply.WriteString(text)
		return yield(domain.ChunkEvent(text))
	}

	for fragment, err := range handle.SendStreaming(ctx, plan.message) {
		if err != nil {
			streamErr = err.Error()
			break
		}
		if !emit(filter.Push(fragment)) {
			// Consumer went away. The game stays pending for the next turn.
			s.finishTurn(sess, prompt, reply.String(), chunks, "client disconnected", reqID, turnID)
			return
		}
	}

	if streamErr != "" {
		logger.Error("Chat stream failed", "error", streamErr, "chunks", chunks)
		s.finishTurn(sess, prompt, reply.String(), chunks, streamErr, reqID, turnID)
		yield(domain.ErrorEvent(FailureMessage))
		return
	}
	if !emit(filter.Flush()) {
		s.finishTurn(sess, prompt, reply.String(), chunks, "client disconnected", reqID, turnID)
		return
	}
	s.finishTurn(sess, prompt, reply.String(), chunks, "", reqID, turnID)

	if !plan.attachGame {
		return
	}
	game := sess.TakeGame()
	if game == nil {
		return
	}
	logger.Info("Word game delivered", "word", game.Word, "marker_seen", filter.Seen())
	s.recordDelivery(ctx, sess.ID, game, logger)
	yield(domain.WordGameEvent(game))
}

// plan picks what to send. A fresh pending game always continues the lesson;
// a stale one is abandoned before the prompt is classified.
func (s *Service) plan(ctx context.Context, sess *session.Session, prompt string, logger *slog.Logger) turnPlan {
	now := s.now()

	if game, createdAt := sess.PendingGame(); game != nil {
		if now.Sub(createdAt) <= s.lessonTTL {
			return turnPlan{mode: modeContinuation, message: learning.ContinuationScript(game, prompt), attachGame: true}
		}
		logger.Info("Abandoning stale word game", "word", game.Word, "age", now.Sub(createdAt))
		sess.ClearGame()
	}

	if s.generator == nil || !s.classifier.Classify(ctx, sess.Transcript().String(), prompt) {
		return turnPlan{mode: modeChat, message: prompt}
	}

	game := s.generator.Generate(ctx, prompt)
	if game == nil {
		logger.Info("No word game generated, continuing with normal chat")
		return turnPlan{mode: modeChat, message: prompt}
	}
	sess.SetGame(game, now)
	return turnPlan{mode: modeTeaching, message: learning.TeachingScript(game, prompt), attachGame: true}
}

func (s *Service) ensureHandle(ctx context.Context, sess *session.Session) (llm.Handle, error) {
	if h := sess.Handle(); h != nil {
		return h, nil
	}
	h, err := s.model.StartSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("start chat session: %w", err)
	}
	sess.SetHandle(h)
	return h, nil
}

func (s *Service) finishTurn(sess *session.Session, prompt, reply string, chunks int, streamErr, reqID, turnID string) {
	sess.Transcript().Append("user", prompt)
	sess.Transcript().Append("ai", reply)
	sess.CountTurn()

	s.logMessage(sess.ID, "inbound", transcript.EventAssistantMessage, reply, map[string]any{
		"stream_chunks": chunks,
		"partial":       streamErr != "",
		"stream_error":  streamErr,
		"request_id":    reqID,
		"turn_id":       turnID,
	})
}

func (s *Service) recordDelivery(ctx context.Context, sessionID string, game *domain.WordGame, logger *slog.Logger) {
	s.logMessage(sessionID, "inbound", transcript.EventWordGame, game.Word, map[string]any{
		"scramble_sentence": game.ScrambleSentence,
	})
	if s.history == nil {
		return
	}
	// Detached from ctx so a client hanging up right after the game does not lose the record.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.RecordWordGame(recordCtx, sessionID, game, s.now()); err != nil {
		logger.Warn("Failed to record word game", "word", game.Word, "error", err)
	}
}

func (s *Service) logMessage(sessionID, direction, eventType, content string, meta map[string]any) {
	s.log.Log(transcript.Event{
		Timestamp:  s.now().UTC().Format(time.RFC3339Nano),
		SessionID:  sessionID,
		Channel:    "chat",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}

// Reset forgets the chat handle, pending game and transcript of a session.
func (s *Service) Reset(sessionID string) error {
	return s.sessions.Update(session.NormalizeID(sessionID), func(sess *session.Session) {
		sess.Reset()
	})
}

// State reports the state of a session, StateIdle for unknown sessions.
func (s *Service) State(sessionID string) domain.SessionState {
	sess, ok := s.sessions.Get(session.NormalizeID(sessionID))
	if !ok {
		return domain.StateIdle
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.State()
}

// History lists delivered words for a session, newest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]*domain.VocabularyEntry, error) {
	if s.history == nil {
		return []*domain.VocabularyEntry{}, nil
	}
	return s.history.ListWords(ctx, session.NormalizeID(sessionID), limit)
}

// HistoryEnabled reports whether delivered words are persisted.
func (s *Service) HistoryEnabled() bool { return s.history != nil }

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/wordchat/internal/api"
	"github.com/ashureev/wordchat/internal/chat"
	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/learning"
	"github.com/ashureev/wordchat/internal/llm"
	"github.com/ashureev/wordchat/internal/session"
)

func collect(t *testing.T, seq func(func(domain.Event, error) bool)) ([]domain.Event, error) {
	t.Helper()
	var events []domain.Event
	for e, err := range seq {
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
	return events, nil
}

func sseServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestChat_ParsesEventsUntilDone(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, `data: {"chunk":"Hi "}`+"\n\n")
		fmt.Fprint(w, `data: {"chunk":"there"}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, `data: {"chunk":"ignored"}`+"\n\n")
	})

	events, err := collect(t, New(srv.URL).Chat(context.Background(), "s1", "hello"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Event{domain.ChunkEvent("Hi "), domain.ChunkEvent("there")}, events)
}

func TestChat_TruncatesRequest(t *testing.T) {
	var got chatRequest
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	longID := strings.Repeat("s", 50)
	longPrompt := strings.Repeat("p", 2500)
	_, err := collect(t, New(srv.URL+"/").Chat(context.Background(), longID, longPrompt))
	require.NoError(t, err)

	assert.Len(t, got.SessionID, MaxSessionIDLength)
	assert.Len(t, got.Prompt, MaxPromptLength)
}

func TestChat_BadRequestSurfacesMessage(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"Prompt is required"}`)
	})

	_, err := collect(t, New(srv.URL).Chat(context.Background(), "s1", ""))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Prompt is required", se.Message)
}

func TestChat_TruncatedStream(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"chunk":"partial"}`+"\n\n")
	})

	events, err := collect(t, New(srv.URL).Chat(context.Background(), "s1", "hi"))
	assert.ErrorIs(t, err, ErrStreamTruncated)
	assert.Len(t, events, 1)
}

func TestChat_MalformedEvent(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {not json\n\n")
	})

	_, err := collect(t, New(srv.URL).Chat(context.Background(), "s1", "hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode event")
}

func TestChat_StopEarly(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `data: {"chunk":"a"}`+"\n\n")
		fmt.Fprint(w, `data: {"chunk":"b"}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	var seen int
	for range New(srv.URL).Chat(context.Background(), "s1", "hi") {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

func TestChat_AgainstServer(t *testing.T) {
	model := llm.NewMock()
	svc := chat.NewService(
		model,
		learning.NewKeywordClassifier(learning.DefaultKeywords),
		learning.NewGenerator(model, nil),
		session.NewMemoryStore(),
		chat.Options{},
	)
	r := chi.NewRouter()
	api.NewChatHandler(svc, 0, 0).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := New(srv.URL)

	events, err := collect(t, c.Chat(context.Background(), "e2e", "hello"))
	require.NoError(t, err)
	var text strings.Builder
	for _, e := range events {
		assert.Nil(t, e.WordGame)
		text.WriteString(e.Chunk)
	}
	assert.Equal(t, "You said: hello", text.String())

	events, err = collect(t, c.Chat(context.Background(), "e2e", "define serendipity"))
	require.NoError(t, err)
	last := events[len(events)-1]
	require.NotNil(t, last.WordGame)
	assert.Equal(t, "serendipity", last.WordGame.Word)

	_, err = collect(t, c.Chat(context.Background(), "e2e", "   "))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Prompt is required", se.Message)
}

func TestHealth(t *testing.T) {
	srv := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, ".")
	})
	assert.NoError(t, New(srv.URL).Health(context.Background()))

	down := sseServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	assert.Error(t, New(down.URL).Health(context.Background()))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "hé", truncate("héllo", 2))
}

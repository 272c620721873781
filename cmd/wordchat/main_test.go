package main

import (
	"bytes"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/wordchat/internal/api"
	"github.com/ashureev/wordchat/internal/chat"
	"github.com/ashureev/wordchat/internal/learning"
	"github.com/ashureev/wordchat/internal/llm"
	"github.com/ashureev/wordchat/internal/session"
)

func newTestServer(t *testing.T, model *llm.MockClient) *httptest.Server {
	t.Helper()
	svc := chat.NewService(
		model,
		learning.NewKeywordClassifier(nil),
		learning.NewGenerator(model, nil),
		session.NewMemoryStore(),
		chat.Options{},
	)
	r := chi.NewRouter()
	r.Use(chiMiddleware.Heartbeat("/health"))
	api.NewChatHandler(svc, 0, 0).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAsk_StreamsReply(t *testing.T) {
	srv := newTestServer(t, llm.NewMock())

	out, _, err := execute(t, "--server", srv.URL, "--session", "cli", "ask", "hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello there\n", out)
}

func TestAsk_PrintsLesson(t *testing.T) {
	srv := newTestServer(t, llm.NewMock())

	out, _, err := execute(t, "--server", srv.URL, "--session", "cli", "ask", "define", "serendipity")
	require.NoError(t, err)
	assert.Contains(t, out, "== serendipity (noun) ==")
	assert.Contains(t, out, `wordchat scramble --word "serendipity"`)
}

func TestAsk_ServerErrorEvent(t *testing.T) {
	model := llm.NewMock(llm.WithStartError(assert.AnError))
	srv := newTestServer(t, model)

	_, errOut, err := execute(t, "--server", srv.URL, "ask", "hello")
	assert.ErrorIs(t, err, errServerReported)
	assert.Contains(t, errOut, "Error: "+chat.FailureMessage)
}

func TestAsk_RequiresPrompt(t *testing.T) {
	_, _, err := execute(t, "ask")
	assert.Error(t, err)
}

func TestHealth_HTTP(t *testing.T) {
	srv := newTestServer(t, llm.NewMock())

	out, _, err := execute(t, "--server", srv.URL, "health")
	require.NoError(t, err)
	assert.Equal(t, "http: ok\n", out)
}

func TestScramble_RejectsEmptySentence(t *testing.T) {
	_, _, err := execute(t, "scramble", "...", "!!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no words")
}

func TestNewSessionID(t *testing.T) {
	id := newSessionID()
	assert.Regexp(t, regexp.MustCompile(`^session_[0-9a-f]{7}$`), id)
	assert.NotEqual(t, id, newSessionID())
}

// Package client is a Go client for the wordchat SSE endpoint.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/ashureev/wordchat/internal/domain"
)

// Request limits applied before a prompt leaves the client.
const (
	MaxPromptLength    = 2000
	MaxSessionIDLength = 36
)

// maxEventSize bounds a single SSE data line.
const maxEventSize = 1 << 20

// ErrStreamTruncated is returned when the stream ends before [DONE].
var ErrStreamTruncated = errors.New("stream ended without done sentinel")

// StatusError is returned when the server rejects a request before streaming.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// Client talks to a wordchat server over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Streams can run for a long time; callers bound them with ctx.
		http: &http.Client{Transport: http.DefaultTransport},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type chatRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
}

// Chat sends one prompt and yields the server's events in order. The
// sequence ends after [DONE]; transport or decode failures are yielded once
// as an error and end the sequence.
func (c *Client) Chat(ctx context.Context, sessionID, prompt string) iter.Seq2[domain.Event, error] {
	return func(yield func(domain.Event, error) bool) {
		resp, err := c.post(ctx, sessionID, prompt)
		if err != nil {
			yield(domain.Event{}, err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for scanner.Scan() {
			line := bytes.TrimRight(scanner.Bytes(), "\r")
			data, ok := bytes.CutPrefix(line, []byte("data:"))
			if !ok {
				// Blank separators and ": ping" keepalives.
				continue
			}
			data = bytes.TrimSpace(data)
			if string(data) == domain.DoneSentinel {
				return
			}

			var e domain.Event
			if err := json.Unmarshal(data, &e); err != nil {
				yield(domain.Event{}, fmt.Errorf("decode event: %w", err))
				return
			}
			if !yield(e, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(domain.Event{}, fmt.Errorf("read stream: %w", err))
			return
		}
		yield(domain.Event{}, ErrStreamTruncated)
	}
}

func (c *Client) post(ctx context.Context, sessionID, prompt string) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{
		Prompt:    truncate(prompt, MaxPromptLength),
		SessionID: truncate(sessionID, MaxSessionIDLength),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
	}
	return &StatusError{Code: resp.StatusCode, Message: payload.Error}
}

// Health reports whether the server's heartbeat endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

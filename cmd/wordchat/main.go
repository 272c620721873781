// Command wordchat is the terminal client for the wordchat server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashureev/wordchat/internal/client"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server    string
	sessionID string
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "wordchat",
		Short: "Chat with the wordchat server and practice new words",
		Long: `wordchat talks to a wordchat server over server-sent events.

Ask for a word ("teach me a new word", "define serendipity") and the server
answers with a short lesson followed by a word-scramble puzzle.

Run without arguments to start the interactive chat.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
			if opts.sessionID == "" {
				opts.sessionID = newSessionID()
			}
			slog.Debug("Using session", "session_id", opts.sessionID, "server", opts.server)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr("WORDCHAT_SERVER", defaultServer), "base URL of the wordchat server")
	flags.StringVar(&opts.sessionID, "session", os.Getenv("WORDCHAT_SESSION"), "session id (random when empty)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newChatCmd(opts),
		newAskCmd(opts),
		newScrambleCmd(),
		newHealthCmd(opts),
	)
	return root
}

func (o *rootOptions) client() *client.Client {
	return client.New(o.server)
}

// newSessionID returns a short random session id.
func newSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

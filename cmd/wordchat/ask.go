package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/wordchat/internal/domain"
)

var errServerReported = errors.New("server reported an error")

func newAskCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one prompt and stream the reply to stdout",
		Example: `  wordchat ask "hello, how are you"
  wordchat --session demo ask define serendipity`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			var failed bool
			for e, err := range opts.client().Chat(cmd.Context(), opts.sessionID, prompt) {
				if err != nil {
					return fmt.Errorf("chat: %w", err)
				}
				switch {
				case e.IsChunk():
					fprintf(out, "%s", e.Chunk)
				case e.IsWordGame():
					printLesson(out, e.WordGame)
				case e.IsError():
					fprintf(cmd.ErrOrStderr(), "\nError: %s\n", e.Error)
					failed = true
				}
			}
			fprintf(out, "\n")
			if failed {
				return errServerReported
			}
			return nil
		},
	}
}

func printLesson(w io.Writer, g *domain.WordGame) {
	fprintf(w, "\n\n== %s (%s) ==\n", g.Word, g.PartOfSpeech)
	fprintf(w, "%s\n", g.Definition)
	fprintf(w, "Example: %s\n", g.Example)
	fprintf(w, "Practice: wordchat scramble --word %q %q\n", g.Word, g.ScrambleSentence)
}

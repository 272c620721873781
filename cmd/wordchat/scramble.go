package main

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/scramble"
	"github.com/ashureev/wordchat/internal/tui"
)

var errOffline = errors.New("chat is not available in puzzle mode")

func newScrambleCmd() *cobra.Command {
	var word string
	cmd := &cobra.Command{
		Use:   "scramble [sentence...]",
		Short: "Play the word-scramble puzzle for a sentence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sentence := strings.Join(args, " ")
			if len(scramble.Tokenize(sentence)) == 0 {
				return errors.New("sentence has no words to scramble")
			}
			offline := func(context.Context, string) iter.Seq2[domain.Event, error] {
				return func(yield func(domain.Event, error) bool) {
					yield(domain.Event{}, errOffline)
				}
			}
			game := &domain.WordGame{Word: word, ScrambleSentence: sentence}
			return tui.Run(cmd.Context(), tui.New(offline, tui.WithLesson(game)))
		},
	}
	cmd.Flags().StringVar(&word, "word", "", "word being practiced")
	return cmd
}

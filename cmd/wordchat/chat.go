package main

import (
	"context"
	"iter"

	"github.com/spf13/cobra"

	"github.com/ashureev/wordchat/internal/domain"
	"github.com/ashureev/wordchat/internal/tui"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}
}

func runChat(ctx context.Context, opts *rootOptions) error {
	c := opts.client()
	sessionID := opts.sessionID
	chat := func(ctx context.Context, prompt string) iter.Seq2[domain.Event, error] {
		return c.Chat(ctx, sessionID, prompt)
	}
	return tui.Run(ctx, tui.New(chat))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/trigger"
)

// newPlaybackCommand forwards a synthetic player event, mainly for
// scripting and manual verification against a running daemon.
func newPlaybackCommand(ctx *commandContext) *cobra.Command {
	var position float64
	var paused bool
	cmd := &cobra.Command{
		Use:   "playback <book-id> <chapter-id>",
		Short: "Report a playback position to the daemon",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.PlaybackEvent(trigger.Event{
					Type:      trigger.EventPlayback,
					BookID:    args[0],
					ChapterID: args[1],
					Position:  position,
					Playing:   !paused,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback event accepted")
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&position, "position", 0, "Position in seconds on the book timeline")
	cmd.Flags().BoolVar(&paused, "paused", false, "Report the player as paused")
	return cmd
}

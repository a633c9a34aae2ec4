package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var priority string
	var force bool
	cmd := &cobra.Command{
		Use:   "transcribe <book-id> <chapter-id>",
		Short: "Request transcription of one chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Transcribe(ipc.TranscribeRequest{
					BookID:    args[0],
					ChapterID: args[1],
					Priority:  priority,
					Force:     force,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeEnqueueResult(resp.Result, args[0], args[1]))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "high", "Task priority (low, medium, high)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-transcribe even if the chapter is already done")
	return cmd
}

func describeEnqueueResult(result, bookID, chapterID string) string {
	target := bookID + "/" + chapterID
	switch result {
	case "accepted":
		return "Queued " + target
	case "upgraded":
		return "Raised priority of queued task for " + target
	case "duplicate":
		return "Recently requested; ignoring duplicate for " + target
	case "already_running":
		return target + " is already being transcribed"
	case "already_transcribed":
		return target + " is already transcribed (use --force to redo)"
	default:
		return "Request resolved as " + result
	}
}

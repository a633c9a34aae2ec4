package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newCaptionsCommand(ctx *commandContext) *cobra.Command {
	var from, to float64
	cmd := &cobra.Command{
		Use:   "captions <book-id> [chapter-id]",
		Short: "Print stored captions for a chapter or a time range",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.CaptionsRequest{BookID: args[0]}
			byRange := cmd.Flags().Changed("from") || cmd.Flags().Changed("to")
			switch {
			case len(args) == 2 && byRange:
				return fmt.Errorf("pass either a chapter id or --from/--to, not both")
			case len(args) == 2:
				req.ChapterID = args[1]
			case byRange:
				req.ByRange = true
				req.From = from
				req.To = to
			default:
				return fmt.Errorf("captions requires a chapter id or --from/--to")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Captions(req)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Sentences) == 0 {
					fmt.Fprintln(stdout, "No captions stored for the requested range")
					return nil
				}
				for _, sentence := range resp.Sentences {
					fmt.Fprintf(stdout, "[%s - %s] %s\n",
						formatClock(sentence.Start), formatClock(sentence.End), sentence.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&from, "from", 0, "Range start in seconds on the book timeline")
	cmd.Flags().Float64Var(&to, "to", 0, "Range end in seconds on the book timeline")
	return cmd
}

func newProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <book-id>",
		Short: "Show how far a book has been transcribed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Progress(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Seconds <= 0 {
					fmt.Fprintf(stdout, "No completed transcription for %s\n", args[0])
					return nil
				}
				fmt.Fprintf(stdout, "Transcribed through %s\n", formatClock(resp.Seconds))
				return nil
			})
		},
	}
}

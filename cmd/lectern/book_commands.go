package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newBooksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "List books known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Books()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Books) == 0 {
					fmt.Fprintln(stdout, "Library is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Books))
				for _, book := range resp.Books {
					rows = append(rows, []string{
						book.ID,
						book.Title,
						book.Author,
						strconv.Itoa(book.Chapters),
					})
				}
				table := renderTable(
					[]string{"ID", "Title", "Author", "Chapters"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func newChaptersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <book-id>",
		Short: "Show per-chapter transcription state for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Chapters(args[0])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Chapters) == 0 {
					fmt.Fprintln(stdout, "No chapters transcribed yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Chapters))
				for _, ch := range resp.Chapters {
					rows = append(rows, []string{
						ch.ChapterID,
						formatClock(ch.Start),
						formatClock(ch.End),
						yesNo(ch.Completed),
						ch.TranscribedAt,
					})
				}
				table := renderTable(
					[]string{"Chapter", "Start", "End", "Completed", "Transcribed At"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func newQueueBookCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue <book-id>",
		Short: "Queue background transcription of a book's first chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.QueueBook(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s for transcription\n", args[0])
				return nil
			})
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <book-id>",
		Short: "Cancel pending and running transcription for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CancelBook(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d task(s) for %s\n", resp.Removed, args[0])
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete all stored transcription data for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("deleting %s removes its transcript permanently; re-run with --yes", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.DeleteBook(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted transcription data for %s (%d task(s) canceled)\n", args[0], resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rescan the library directory for book manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReloadLibrary()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Library reloaded: %d book(s)\n", resp.BookCount)
				return nil
			})
		},
	}
}

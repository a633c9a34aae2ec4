package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/scheduler"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, playback, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				runningKind := statusError
				if resp.Running {
					runningKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, yesNo(resp.Running), colorize))
				fmt.Fprintln(stdout, renderStatusLine("PID", statusInfo, strconv.Itoa(resp.PID), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, resp.DBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Books", statusInfo, strconv.Itoa(resp.BookCount), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, dep := range resp.Dependencies {
					kind := statusError
					detail := "not found on PATH"
					if dep.Available {
						kind = statusOK
						detail = fmt.Sprintf("Ready (command: %s)", dep.Command)
					}
					fmt.Fprintln(stdout, renderStatusLine(dep.Name, kind, detail, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Playback", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if resp.Playback.BookID == "" {
					fmt.Fprintln(stdout, renderStatusLine("Player", statusInfo, "no playback reported", colorize))
				} else {
					position := fmt.Sprintf("%s / %s at %s",
						resp.Playback.BookID, resp.Playback.ChapterID, formatClock(resp.Playback.Position))
					kind := statusInfo
					if resp.Playback.Playing {
						kind = statusOK
					}
					fmt.Fprintln(stdout, renderStatusLine("Player", kind, position, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Transcription Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Completed", statusInfo, strconv.Itoa(resp.Scheduler.Completed), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Failed", failureKind(resp.Scheduler.Failed), strconv.Itoa(resp.Scheduler.Failed), colorize))

				rows := buildQueueRows(resp.Scheduler)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}
				table := renderTable(
					[]string{"Book", "Chapter", "Priority", "State", "Attempts", "Sentences"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func failureKind(failed int) statusKind {
	if failed > 0 {
		return statusWarn
	}
	return statusInfo
}

func buildQueueRows(snap scheduler.Snapshot) [][]string {
	tasks := make([]scheduler.TaskStatus, 0, len(snap.Queued)+1)
	if snap.Running != nil {
		tasks = append(tasks, *snap.Running)
	}
	tasks = append(tasks, snap.Queued...)

	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, []string{
			task.BookID,
			task.ChapterID,
			task.Priority,
			task.State,
			strconv.Itoa(task.Attempts),
			strconv.Itoa(task.Sentences),
		})
	}
	return rows
}

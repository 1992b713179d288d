package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state and the media queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			status, err := client.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon unreachable: %w", err)
			}

			running := "stopped"
			if status.Running {
				running = "running"
			}
			fmt.Fprintf(out, "Daemon: %s (db %s)\n", running, status.DBPath)
			fmt.Fprintf(out, "Media:  %d total — %d pending, %d processing, %d completed, %d failed\n\n",
				status.Total, status.Pending, status.Processing, status.Completed, status.Failed)

			list, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list.Media) == 0 {
				fmt.Fprintln(out, "No media registered.")
				return nil
			}

			rows := make([][]string, 0, len(list.Media))
			for _, view := range list.Media {
				title := view.Title
				if title == "" {
					title = filepath.Base(view.SourcePath)
				}
				stage := view.StageLabel
				if stage == "" {
					stage = "-"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", view.ID),
					view.Kind,
					colorizeStatus(view.Status, colorize),
					stage,
					formatDuration(view.DurationSeconds),
					formatSize(view.SizeBytes),
					truncate(title, 40),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Kind", "Status", "Stage", "Duration", "Size", "Title"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

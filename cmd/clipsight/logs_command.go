package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"clipsight/internal/api"
)

const (
	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var since int64

	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the progress log for a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMediaID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			batch, err := client.Logs(cmd.Context(), id, since)
			if err != nil {
				return err
			}
			printEntries(out, batch.Entries, colorize)
			cursor := batch.Next

			if !follow {
				return nil
			}
			return followLogs(cmd.Context(), client, id, cursor, out, colorize)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new entries until the run ends")
	cmd.Flags().Int64Var(&since, "since", 0, "Start after this sequence number")
	return cmd
}

// followLogs streams via SSE, reconnecting with exponential backoff and
// resuming from the last delivered sequence.
func followLogs(ctx context.Context, client *api.Client, id, cursor int64, out io.Writer, colorize bool) error {
	delay := reconnectBaseDelay
	for {
		end, err := client.StreamLogs(ctx, id, cursor, func(batch api.LogBatch) {
			printEntries(out, batch.Entries, colorize)
			if batch.Next > cursor {
				cursor = batch.Next
			}
			delay = reconnectBaseDelay
		})
		if err == nil {
			fmt.Fprintf(out, "-- run ended: %s --\n", end.Status)
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil
		}
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.Code != 0 && statusErr.Code < 500 {
			// The daemon answered; the record is gone or the request is bad.
			return err
		}

		fmt.Fprintf(out, "-- stream dropped (%v), reconnecting in %s --\n", err, delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func printEntries(out io.Writer, entries []api.LogEntryView, colorize bool) {
	for _, entry := range entries {
		fmt.Fprintf(out, "%s  %-7s  %s\n",
			entry.CreatedAt.Local().Format("15:04:05"),
			colorizeLevel(entry.Level, colorize),
			entry.Message,
		)
	}
}

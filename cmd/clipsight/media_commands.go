package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipsight/internal/api"
)

var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".m4a":  {},
	".flac": {},
	".ogg":  {},
	".opus": {},
}

func inferKind(path string) string {
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return "audio"
	}
	return "video"
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var kind string
	var title string
	var contextNote string

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a media file for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if kind == "" {
				kind = inferKind(path)
			}
			view, err := client.Ingest(cmd.Context(), api.IngestRequest{
				SourcePath:  path,
				Kind:        kind,
				Title:       title,
				ContextNote: contextNote,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added media %d (%s, %s): %s\n",
				view.ID, view.Kind, formatDuration(view.DurationSeconds), view.SourcePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Media kind: video or audio (inferred from extension when empty)")
	cmd.Flags().StringVar(&title, "title", "", "Human-readable title")
	cmd.Flags().StringVar(&contextNote, "context", "", "Free-form context passed to the analysis prompts")
	return cmd
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <id>",
		Short: "Submit a pending record for processing",
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
			view, err := client.Process(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Media %d queued (run %s)\n", view.ID, view.RunID)
			return nil
		},
	}
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Reset a failed record to pending under a fresh run",
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
			view, err := client.Retry(cmd.Context(), id)
			if err != nil {
				if api.IsConflict(err) {
					return fmt.Errorf("media %d is not in a failed state", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Media %d requeued (run %s)\n", view.ID, view.RunID)
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a record and its artifacts",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMediaID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Remove(cmd.Context(), id); err != nil {
				if api.IsConflict(err) {
					return fmt.Errorf("media %d is processing; wait for it to finish", id)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Media %d removed\n", id)
			return nil
		},
	}
}

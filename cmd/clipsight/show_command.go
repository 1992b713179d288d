package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var rawAnalysis bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a record with its current-run artifacts",
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
			detail, err := client.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			view := detail.Media

			if rawAnalysis {
				if detail.Analysis == "" {
					return fmt.Errorf("media %d has no analysis yet", id)
				}
				fmt.Fprintln(out, detail.Analysis)
				return nil
			}

			title := view.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "Media %d — %s\n", view.ID, title)
			fmt.Fprintf(out, "  Kind:     %s\n", view.Kind)
			fmt.Fprintf(out, "  Status:   %s\n", colorizeStatus(view.Status, colorize))
			if view.StageLabel != "" {
				fmt.Fprintf(out, "  Stage:    %s\n", view.StageLabel)
			}
			fmt.Fprintf(out, "  Source:   %s\n", view.SourcePath)
			fmt.Fprintf(out, "  Duration: %s  Size: %s\n", formatDuration(view.DurationSeconds), formatSize(view.SizeBytes))
			fmt.Fprintf(out, "  Run:      %s\n", view.RunID)
			if view.ContextNote != "" {
				fmt.Fprintf(out, "  Context:  %s\n", view.ContextNote)
			}
			if view.ErrorMessage != "" {
				fmt.Fprintf(out, "  Error:    %s\n", view.ErrorMessage)
			}

			if detail.Transcript != nil {
				fmt.Fprintf(out, "\nTranscript (%d segments", len(detail.Transcript.Segments))
				if detail.Transcript.Language != "" {
					fmt.Fprintf(out, ", %s", detail.Transcript.Language)
				}
				fmt.Fprintln(out, "):")
				fmt.Fprintf(out, "  %s\n", truncate(detail.Transcript.Text, 400))
			}

			if len(detail.Keyframes) > 0 {
				fmt.Fprintln(out, "\nKeyframes:")
				rows := make([][]string, 0, len(detail.Keyframes))
				for _, frame := range detail.Keyframes {
					rows = append(rows, []string{
						formatDuration(frame.TimestampSeconds),
						fmt.Sprintf("%.1f", frame.Score),
						truncate(frame.Description, 70),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"At", "Score", "Description"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignLeft},
				))
			}

			if detail.Analysis != "" {
				fmt.Fprintln(out, "\nAnalysis:")
				fmt.Fprintln(out, indentJSON(detail.Analysis))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawAnalysis, "json", false, "Print only the raw analysis JSON")
	return cmd
}

func indentJSON(payload string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(payload), "  ", "  "); err != nil {
		return "  " + payload
	}
	return "  " + buf.String()
}

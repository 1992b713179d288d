package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipsight/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigInitCommand(ctx))
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *ctx.configFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, exists, err := config.Load(*ctx.configFlag)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config file: %s\n\n", resolvedPath)
			} else {
				fmt.Fprintf(out, "Config file: %s (not found, using defaults)\n\n", resolvedPath)
			}
			fmt.Fprintf(out, "data_dir:   %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "media_dir:  %s\n", cfg.Paths.MediaDir)
			fmt.Fprintf(out, "log_dir:    %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "api_bind:   %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "workers:    %d\n", cfg.Workflow.Workers)
			fmt.Fprintf(out, "keyframes:  threshold=%.1f max=%d min_interval=%.1fs dedup=%d\n",
				cfg.Keyframes.Threshold, cfg.Keyframes.MaxFrames,
				cfg.Keyframes.MinIntervalSeconds, cfg.Keyframes.DedupDistance)
			fmt.Fprintf(out, "llm:        %s (vision %s)\n", cfg.LLM.Model, cfg.LLM.VisionModel)
			fmt.Fprintf(out, "transcribe: %s (%s)\n", cfg.Transcriber.BaseURL, cfg.Transcriber.Model)
			return nil
		},
	}
}

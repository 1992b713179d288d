package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipsight/internal/api"
	"clipsight/internal/config"
)

// commandContext shares flag-driven state across subcommands.
type commandContext struct {
	configFlag *string
	apiFlag    *string

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, _, _, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) client() (*api.Client, error) {
	if addr := strings.TrimSpace(*c.apiFlag); addr != "" {
		return api.NewClient(normalizeBaseURL(addr)), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return api.NewClient(normalizeBaseURL(cfg.Paths.APIBind)), nil
}

func normalizeBaseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var apiFlag string

	ctx := &commandContext{configFlag: &configFlag, apiFlag: &apiFlag}

	rootCmd := &cobra.Command{
		Use:           "clipsight",
		Short:         "Clipsight media analysis CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Daemon API address (host:port or URL)")

	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newSubmitCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func parseMediaID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid media id %q", arg)
	}
	return id, nil
}

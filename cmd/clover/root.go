package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clover",
		Short:         "Identity resolution and deduplication engine",
		Long:          `Clover finds duplicate contacts and companies, merges them, and manages the review queue for staged suggestions.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newScanCmd())
	return root
}

// loadConfig reads configuration and builds the logger shared by every command
func loadConfig() (*config.Config, ectologger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

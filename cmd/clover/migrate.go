package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return errors.New("migrate requires STORAGE_DRIVER=postgres")
			}

			a := newApp(cfg, logger, appOptions{migrate: true})
			if err := a.start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = a.stop(context.Background()) }()

			logger.Infof("Migrations from %s applied to %s", cfg.DatabaseMigrationFolderPath, cfg.DatabaseName)
			return nil
		},
	}
}

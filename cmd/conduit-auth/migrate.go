package main

import (
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-conduit-auth"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)

			client, sqldb, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			defer sqldb.Close()

			if rollback {
				if err := client.Rollback(cmd.Context()); err != nil {
					return err
				}
				logger.Info("rolled back last migration group on %s", cfg.Database)
				return nil
			}

			if err := auth.Migrate(cmd.Context(), client); err != nil {
				return err
			}

			if group := client.Report(); group != nil {
				logger.Info("migrations applied to %s: %s", cfg.Database, group.String())
			} else {
				logger.Info("migrations up to date on %s", cfg.Database)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")

	return cmd
}

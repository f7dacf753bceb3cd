package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the conduit-auth CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conduit-auth",
		Short: "Conduit API with token authentication",
		Long: `conduit-auth serves the users, profiles and articles API backed by
SQLite. Configuration comes from an optional YAML file, CONDUIT_ environment
variables and flags, in increasing order of precedence.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("database", defaultDatabase, "SQLite DSN")
	cmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

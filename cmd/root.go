package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "codesync",
		Short:         "CodeSync collaborative editor backend",
		Long:          "codesync serves the room coordinator over websocket, the REST API used by the editor, and a gRPC health endpoint.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default $CONFIG_PATH or ./config/config.yaml)")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return rootCmd
}

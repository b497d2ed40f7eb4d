package cmd

import (
	"github.com/spf13/cobra"

	"render-orchestrator/config"
)

func Root(config *config.Config) *cobra.Command {
	rootCmd := &cobra.Command{}
	rootCmd.AddCommand(server(config))
	rootCmd.AddCommand(workerCmd(config))
	return rootCmd
}

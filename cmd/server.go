package cmd

import (
	"github.com/spf13/cobra"

	"render-orchestrator/config"
	server2 "render-orchestrator/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http api server",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}

func workerCmd(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "start render queue worker",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunWorker(config)
		},
	}
}

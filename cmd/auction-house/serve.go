package main

import (
	"github.com/spf13/cobra"

	"github.com/code-payments/auction-house-server/pkg/app"
	"github.com/code-payments/auction-house-server/pkg/server"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the auction house HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return err
		}
		return app.Run(server.NewApp(), config)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	rootCmd.AddCommand(serveCmd)
}

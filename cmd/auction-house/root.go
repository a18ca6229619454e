package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "auction-house",
	Short: "Auction house settlement server and tooling",
	Long: `auction-house runs the auction house and auctioneer programs behind an
HTTP API, and provides offline helpers for deriving addresses and quoting
sale fees.`,
	SilenceUsage: true,
}

// Execute runs the command selected by the process arguments
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.StandardLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/code-payments/auction-house-server/pkg/amount"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
)

var quoteArgs struct {
	basisPoints uint16
	decimals    uint8
}

var quoteCmd = &cobra.Command{
	Use:   "quote <price>",
	Short: "Split a sale price into the house fee and the seller's proceeds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := amount.StrToBaseUnits(args[0], quoteArgs.decimals)
		if err != nil {
			return err
		}

		fee, proceeds, err := auctionhouse.ComputeFee(price, quoteArgs.basisPoints)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "price     %s (%d)\n", amount.StrFromBaseUnits(price, quoteArgs.decimals), price)
		fmt.Fprintf(out, "fee       %s (%d) at %s%%\n", amount.StrFromBaseUnits(fee, quoteArgs.decimals), fee, amount.FromBaseUnits(uint64(quoteArgs.basisPoints), 2))
		fmt.Fprintf(out, "proceeds  %s (%d)\n", amount.StrFromBaseUnits(proceeds, quoteArgs.decimals), proceeds)
		return nil
	},
}

func init() {
	quoteCmd.Flags().Uint16Var(&quoteArgs.basisPoints, "bps", 0, "seller fee basis points")
	quoteCmd.Flags().Uint8Var(&quoteArgs.decimals, "decimals", amount.NativeDecimals, "treasury mint decimals")

	rootCmd.AddCommand(quoteCmd)
}

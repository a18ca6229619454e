package main

import (
	"crypto/ed25519"
	"fmt"
	"io"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	auctioneer_program "github.com/code-payments/auction-house-server/pkg/solana/auctioneer"
	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

var deriveArgs struct {
	creator      string
	treasuryMint string
	wallet       string
	tokenAccount string
	tokenMint    string
	price        uint64
	size         uint64
}

var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Print the program derived addresses of an auction house",
	Long: `derive prints the auction house, its fee account, treasury and auctioneer
addresses. With --wallet it also prints the wallet's escrow, and with
--token-account and --token-mint the trade states of the order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return derive(cmd.OutOrStdout())
	},
}

func init() {
	flags := deriveCmd.Flags()
	flags.StringVar(&deriveArgs.creator, "creator", "", "auction house creator")
	flags.StringVar(&deriveArgs.treasuryMint, "treasury-mint", base58.Encode(auctionhouse_program.NATIVE_MINT), "treasury mint")
	flags.StringVar(&deriveArgs.wallet, "wallet", "", "order wallet")
	flags.StringVar(&deriveArgs.tokenAccount, "token-account", "", "order token account")
	flags.StringVar(&deriveArgs.tokenMint, "token-mint", "", "order token mint")
	flags.Uint64Var(&deriveArgs.price, "price", 0, "order price in treasury mint base units")
	flags.Uint64Var(&deriveArgs.size, "size", 1, "order token size")
	_ = deriveCmd.MarkFlagRequired("creator")

	rootCmd.AddCommand(deriveCmd)
}

func derive(out io.Writer) error {
	creator, err := parseKey("creator", deriveArgs.creator)
	if err != nil {
		return err
	}
	treasuryMint, err := parseKey("treasury-mint", deriveArgs.treasuryMint)
	if err != nil {
		return err
	}

	auctionHouse, bump, err := auctionhouse_program.GetAuctionHouseAddress(&auctionhouse_program.GetAuctionHouseAddressArgs{
		Creator:      creator,
		TreasuryMint: treasuryMint,
	})
	if err != nil {
		return err
	}
	printAddress(out, "auction_house", auctionHouse, bump)

	feeAccount, bump, err := auctionhouse_program.GetAuctionHouseFeeAccountAddress(&auctionhouse_program.GetAuctionHouseFeeAccountAddressArgs{
		AuctionHouse: auctionHouse,
	})
	if err != nil {
		return err
	}
	printAddress(out, "fee_account", feeAccount, bump)

	treasury, bump, err := auctionhouse_program.GetAuctionHouseTreasuryAddress(&auctionhouse_program.GetAuctionHouseTreasuryAddressArgs{
		AuctionHouse: auctionHouse,
	})
	if err != nil {
		return err
	}
	printAddress(out, "treasury", treasury, bump)

	programAsSigner, bump, err := auctionhouse_program.GetProgramAsSignerAddress()
	if err != nil {
		return err
	}
	printAddress(out, "program_as_signer", programAsSigner, bump)

	auctioneerAuthority, bump, err := auctioneer_program.GetAuctioneerAuthorityAddress(&auctioneer_program.GetAuctioneerAuthorityAddressArgs{
		AuctionHouse: auctionHouse,
	})
	if err != nil {
		return err
	}
	printAddress(out, "auctioneer_authority", auctioneerAuthority, bump)

	auctioneer, bump, err := auctionhouse_program.GetAuctioneerAddress(&auctionhouse_program.GetAuctioneerAddressArgs{
		AuctionHouse:        auctionHouse,
		AuctioneerAuthority: auctioneerAuthority,
	})
	if err != nil {
		return err
	}
	printAddress(out, "auctioneer", auctioneer, bump)

	if len(deriveArgs.wallet) == 0 {
		return nil
	}

	wallet, err := parseKey("wallet", deriveArgs.wallet)
	if err != nil {
		return err
	}

	escrow, bump, err := auctionhouse_program.GetEscrowPaymentAddress(&auctionhouse_program.GetEscrowPaymentAddressArgs{
		AuctionHouse: auctionHouse,
		Wallet:       wallet,
	})
	if err != nil {
		return err
	}
	printAddress(out, "escrow", escrow, bump)

	if len(deriveArgs.tokenAccount) == 0 || len(deriveArgs.tokenMint) == 0 {
		return nil
	}

	tokenAccount, err := parseKey("token-account", deriveArgs.tokenAccount)
	if err != nil {
		return err
	}
	tokenMint, err := parseKey("token-mint", deriveArgs.tokenMint)
	if err != nil {
		return err
	}

	for _, role := range []auctionhouse_program.TradeStateRole{
		auctionhouse_program.TradeStateRoleSeller,
		auctionhouse_program.TradeStateRoleFreeSeller,
		auctionhouse_program.TradeStateRolePrivateBuyer,
		auctionhouse_program.TradeStateRolePublicBuyer,
	} {
		tradeState, bump, err := auctionhouse_program.GetTradeStateAddress(&auctionhouse_program.TradeStateKey{
			Role:         role,
			Wallet:       wallet,
			AuctionHouse: auctionHouse,
			TokenAccount: tokenAccount,
			TreasuryMint: treasuryMint,
			TokenMint:    tokenMint,
			Price:        deriveArgs.price,
			Size:         deriveArgs.size,
		})
		if err != nil {
			return err
		}
		printAddress(out, role.String()+"_trade_state", tradeState, bump)
	}

	return nil
}

func parseKey(name, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("--%s must be a base58 encoded public key", name)
	}
	return decoded, nil
}

func printAddress(out io.Writer, name string, address ed25519.PublicKey, bump uint8) {
	fmt.Fprintf(out, "%-28s %-44s bump=%d\n", name, base58.Encode(address), bump)
}

package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	CancelInstructionArgsSize = (8 + // buyer_price
		8) // token_size
)

type CancelInstructionArgs struct {
	BuyerPrice uint64
	TokenSize  uint64
}

func (args *CancelInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeCancel, CancelInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint64(data, &args.BuyerPrice, &offset)
	getUint64(data, &args.TokenSize, &offset)

	return nil
}

// CancelInstructionAccounts closes a listing, private bid or public bid.
// TradeState must be one of the trade states derivable from the wallet,
// token account, mint, price and size.
type CancelInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	TokenAccount           ed25519.PublicKey
	TokenMint              ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey
	TradeState             ed25519.PublicKey

	WalletIsSigner    bool
	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewCancelInstruction(
	accounts *CancelInstructionAccounts,
	args *CancelInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+CancelInstructionArgsSize)

	putInstructionType(data, instructionType(InstructionTypeCancel, accounts.Auctioneer), &offset)
	putUint64(data, args.BuyerPrice, &offset)
	putUint64(data, args.TokenSize, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Wallet, accounts.WalletIsSigner),
			solana.NewAccountMeta(accounts.TokenAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TokenMint, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.TradeState, false),
		}, accounts.Auctioneer.metas()...),
	}
}

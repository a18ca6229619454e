package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	WithdrawInstructionArgsSize = (1 + // escrow_payment_bump
		8) // amount
)

type WithdrawInstructionArgs struct {
	EscrowPaymentBump uint8
	Amount            uint64
}

func (args *WithdrawInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeWithdraw, WithdrawInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.EscrowPaymentBump, &offset)
	getUint64(data, &args.Amount, &offset)

	return nil
}

// WithdrawInstructionAccounts always pays out to the wallet. ReceiptAccount
// is the wallet for native auction houses, and the wallet's associated token
// account otherwise.
type WithdrawInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	ReceiptAccount         ed25519.PublicKey
	EscrowPaymentAccount   ed25519.PublicKey
	TreasuryMint           ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey

	WalletIsSigner    bool
	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewWithdrawInstruction(
	accounts *WithdrawInstructionAccounts,
	args *WithdrawInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+WithdrawInstructionArgsSize)

	putInstructionType(data, instructionType(InstructionTypeWithdraw, accounts.Auctioneer), &offset)
	putUint8(data, args.EscrowPaymentBump, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Wallet, accounts.WalletIsSigner),
			solana.NewAccountMeta(accounts.ReceiptAccount, false),
			solana.NewAccountMeta(accounts.EscrowPaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
		}, accounts.Auctioneer.metas()...),
	}
}

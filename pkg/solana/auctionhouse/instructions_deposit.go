package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	DepositInstructionArgsSize = (1 + // escrow_payment_bump
		8) // amount
)

type DepositInstructionArgs struct {
	EscrowPaymentBump uint8
	Amount            uint64
}

func (args *DepositInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeDeposit, DepositInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.EscrowPaymentBump, &offset)
	getUint64(data, &args.Amount, &offset)

	return nil
}

// DepositInstructionAccounts moves funds from PaymentAccount into the escrow.
// For native auction houses PaymentAccount is the wallet itself.
type DepositInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	PaymentAccount         ed25519.PublicKey
	TransferAuthority      ed25519.PublicKey
	EscrowPaymentAccount   ed25519.PublicKey
	TreasuryMint           ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey

	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+DepositInstructionArgsSize)

	putInstructionType(data, instructionType(InstructionTypeDeposit, accounts.Auctioneer), &offset)
	putUint8(data, args.EscrowPaymentBump, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Wallet, true),
			solana.NewAccountMeta(accounts.PaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TransferAuthority, false),
			solana.NewAccountMeta(accounts.EscrowPaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
		}, accounts.Auctioneer.metas()...),
	}
}

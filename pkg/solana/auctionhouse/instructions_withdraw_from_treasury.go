package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	WithdrawFromTreasuryInstructionArgsSize = 8 // amount
)

type WithdrawFromTreasuryInstructionArgs struct {
	Amount uint64
}

func (args *WithdrawFromTreasuryInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeWithdrawFromTreasury, WithdrawFromTreasuryInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint64(data, &args.Amount, &offset)

	return nil
}

type WithdrawFromTreasuryInstructionAccounts struct {
	TreasuryMint                  ed25519.PublicKey
	Authority                     ed25519.PublicKey
	TreasuryWithdrawalDestination ed25519.PublicKey
	AuctionHouseTreasury          ed25519.PublicKey
	AuctionHouse                  ed25519.PublicKey
}

func NewWithdrawFromTreasuryInstruction(
	accounts *WithdrawFromTreasuryInstructionAccounts,
	args *WithdrawFromTreasuryInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+WithdrawFromTreasuryInstructionArgsSize)

	putInstructionType(data, InstructionTypeWithdrawFromTreasury, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, true),
			solana.NewAccountMeta(accounts.TreasuryWithdrawalDestination, false),
			solana.NewAccountMeta(accounts.AuctionHouseTreasury, false),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
		},
	}
}

package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	WithdrawFromFeeInstructionArgsSize = 8 // amount
)

type WithdrawFromFeeInstructionArgs struct {
	Amount uint64
}

func (args *WithdrawFromFeeInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeWithdrawFromFee, WithdrawFromFeeInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint64(data, &args.Amount, &offset)

	return nil
}

type WithdrawFromFeeInstructionAccounts struct {
	Authority                ed25519.PublicKey
	FeeWithdrawalDestination ed25519.PublicKey
	AuctionHouseFeeAccount   ed25519.PublicKey
	AuctionHouse             ed25519.PublicKey
}

func NewWithdrawFromFeeInstruction(
	accounts *WithdrawFromFeeInstructionAccounts,
	args *WithdrawFromFeeInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+WithdrawFromFeeInstructionArgsSize)

	putInstructionType(data, InstructionTypeWithdrawFromFee, &offset)
	putUint64(data, args.Amount, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			solana.NewReadonlyAccountMeta(accounts.Authority, true),
			solana.NewAccountMeta(accounts.FeeWithdrawalDestination, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
		},
	}
}

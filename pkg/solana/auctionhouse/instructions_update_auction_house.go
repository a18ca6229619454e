package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	UpdateAuctionHouseInstructionArgsSize = (1 + 2 + // seller_fee_basis_points
		1 + 1 + // requires_sign_off
		1 + 1) // can_change_sale_price
)

// UpdateAuctionHouseInstructionArgs leaves unset fields unchanged
type UpdateAuctionHouseInstructionArgs struct {
	SellerFeeBasisPoints *uint16
	RequiresSignOff      *bool
	CanChangeSalePrice   *bool
}

func (args *UpdateAuctionHouseInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeUpdateAuctionHouse, UpdateAuctionHouseInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getOptionalUint16(data, &args.SellerFeeBasisPoints, &offset)
	getOptionalBool(data, &args.RequiresSignOff, &offset)
	getOptionalBool(data, &args.CanChangeSalePrice, &offset)

	return nil
}

// UpdateAuctionHouseInstructionAccounts replaces the authority with
// NewAuthority, which may be equal to Authority, and re-points the
// withdrawal destinations
type UpdateAuctionHouseInstructionAccounts struct {
	TreasuryMint                       ed25519.PublicKey
	Payer                              ed25519.PublicKey
	Authority                          ed25519.PublicKey
	NewAuthority                       ed25519.PublicKey
	FeeWithdrawalDestination           ed25519.PublicKey
	TreasuryWithdrawalDestination      ed25519.PublicKey
	TreasuryWithdrawalDestinationOwner ed25519.PublicKey
	AuctionHouse                       ed25519.PublicKey
}

func NewUpdateAuctionHouseInstruction(
	accounts *UpdateAuctionHouseInstructionAccounts,
	args *UpdateAuctionHouseInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+UpdateAuctionHouseInstructionArgsSize)

	putInstructionType(data, InstructionTypeUpdateAuctionHouse, &offset)
	putOptionalUint16(data, args.SellerFeeBasisPoints, &offset)
	putOptionalBool(data, args.RequiresSignOff, &offset)
	putOptionalBool(data, args.CanChangeSalePrice, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewAccountMeta(accounts.Payer, true),
			solana.NewReadonlyAccountMeta(accounts.Authority, true),
			solana.NewReadonlyAccountMeta(accounts.NewAuthority, false),
			solana.NewReadonlyAccountMeta(accounts.FeeWithdrawalDestination, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryWithdrawalDestination, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryWithdrawalDestinationOwner, false),
			solana.NewAccountMeta(accounts.AuctionHouse, false),
		},
	}
}

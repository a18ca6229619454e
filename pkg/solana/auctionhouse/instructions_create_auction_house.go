package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	CreateAuctionHouseInstructionArgsSize = (1 + // bump
		1 + // fee_payer_bump
		1 + // treasury_bump
		2 + // seller_fee_basis_points
		1 + // requires_sign_off
		1) // can_change_sale_price
)

type CreateAuctionHouseInstructionArgs struct {
	Bump                 uint8
	FeePayerBump         uint8
	TreasuryBump         uint8
	SellerFeeBasisPoints uint16
	RequiresSignOff      bool
	CanChangeSalePrice   bool
}

func (args *CreateAuctionHouseInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeCreateAuctionHouse, CreateAuctionHouseInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.Bump, &offset)
	getUint8(data, &args.FeePayerBump, &offset)
	getUint8(data, &args.TreasuryBump, &offset)
	getUint16(data, &args.SellerFeeBasisPoints, &offset)
	getBool(data, &args.RequiresSignOff, &offset)
	getBool(data, &args.CanChangeSalePrice, &offset)

	return nil
}

type CreateAuctionHouseInstructionAccounts struct {
	TreasuryMint                       ed25519.PublicKey
	Payer                              ed25519.PublicKey
	Authority                          ed25519.PublicKey
	FeeWithdrawalDestination           ed25519.PublicKey
	TreasuryWithdrawalDestination      ed25519.PublicKey
	TreasuryWithdrawalDestinationOwner ed25519.PublicKey
	AuctionHouse                       ed25519.PublicKey
	AuctionHouseFeeAccount             ed25519.PublicKey
	AuctionHouseTreasury               ed25519.PublicKey
}

func NewCreateAuctionHouseInstruction(
	accounts *CreateAuctionHouseInstructionAccounts,
	args *CreateAuctionHouseInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+CreateAuctionHouseInstructionArgsSize)

	putInstructionType(data, InstructionTypeCreateAuctionHouse, &offset)
	putUint8(data, args.Bump, &offset)
	putUint8(data, args.FeePayerBump, &offset)
	putUint8(data, args.TreasuryBump, &offset)
	putUint16(data, args.SellerFeeBasisPoints, &offset)
	putBool(data, args.RequiresSignOff, &offset)
	putBool(data, args.CanChangeSalePrice, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewAccountMeta(accounts.Payer, true),
			solana.NewReadonlyAccountMeta(accounts.Authority, true),
			solana.NewReadonlyAccountMeta(accounts.FeeWithdrawalDestination, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryWithdrawalDestination, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryWithdrawalDestinationOwner, false),
			solana.NewAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.AuctionHouseTreasury, false),
		},
	}
}

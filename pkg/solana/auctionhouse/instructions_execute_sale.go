package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	ExecuteSaleInstructionArgsSize = (1 + // escrow_payment_bump
		1 + // free_trade_state_bump
		1 + // program_as_signer_bump
		8 + // buyer_price
		8 + // token_size
		1 + 8 + // partial_order_size
		1 + 8) // partial_order_price
)

// ExecuteSaleInstructionArgs matches a bid against a listing. Partial orders
// set both PartialOrderSize and PartialOrderPrice.
type ExecuteSaleInstructionArgs struct {
	EscrowPaymentBump   uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
	PartialOrderSize    *uint64
	PartialOrderPrice   *uint64
}

func (args *ExecuteSaleInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeExecuteSale, ExecuteSaleInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.EscrowPaymentBump, &offset)
	getUint8(data, &args.FreeTradeStateBump, &offset)
	getUint8(data, &args.ProgramAsSignerBump, &offset)
	getUint64(data, &args.BuyerPrice, &offset)
	getUint64(data, &args.TokenSize, &offset)
	getOptionalUint64(data, &args.PartialOrderSize, &offset)
	getOptionalUint64(data, &args.PartialOrderPrice, &offset)

	return nil
}

// IsPartial reports whether the sale fills only part of the trade states
func (args *ExecuteSaleInstructionArgs) IsPartial() bool {
	return args.PartialOrderSize != nil || args.PartialOrderPrice != nil
}

type ExecuteSaleInstructionAccounts struct {
	Buyer                  ed25519.PublicKey
	Seller                 ed25519.PublicKey
	TokenAccount           ed25519.PublicKey
	TokenMint              ed25519.PublicKey
	Metadata               ed25519.PublicKey
	TreasuryMint           ed25519.PublicKey
	EscrowPaymentAccount   ed25519.PublicKey
	SellerPaymentReceipt   ed25519.PublicKey
	BuyerReceiptToken      ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey
	AuctionHouseTreasury   ed25519.PublicKey
	BuyerTradeState        ed25519.PublicKey
	SellerTradeState       ed25519.PublicKey
	FreeTradeState         ed25519.PublicKey
	ProgramAsSigner        ed25519.PublicKey

	BuyerIsSigner     bool
	SellerIsSigner    bool
	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewExecuteSaleInstruction(
	accounts *ExecuteSaleInstructionAccounts,
	args *ExecuteSaleInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+ExecuteSaleInstructionArgsSize)

	putInstructionType(data, instructionType(InstructionTypeExecuteSale, accounts.Auctioneer), &offset)
	putUint8(data, args.EscrowPaymentBump, &offset)
	putUint8(data, args.FreeTradeStateBump, &offset)
	putUint8(data, args.ProgramAsSignerBump, &offset)
	putUint64(data, args.BuyerPrice, &offset)
	putUint64(data, args.TokenSize, &offset)
	putOptionalUint64(data, args.PartialOrderSize, &offset)
	putOptionalUint64(data, args.PartialOrderPrice, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Buyer, accounts.BuyerIsSigner),
			solana.NewAccountMeta(accounts.Seller, accounts.SellerIsSigner),
			solana.NewAccountMeta(accounts.TokenAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TokenMint, false),
			solana.NewReadonlyAccountMeta(accounts.Metadata, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewAccountMeta(accounts.EscrowPaymentAccount, false),
			solana.NewAccountMeta(accounts.SellerPaymentReceipt, false),
			solana.NewAccountMeta(accounts.BuyerReceiptToken, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.AuctionHouseTreasury, false),
			solana.NewAccountMeta(accounts.BuyerTradeState, false),
			solana.NewAccountMeta(accounts.SellerTradeState, false),
			solana.NewAccountMeta(accounts.FreeTradeState, false),
			solana.NewReadonlyAccountMeta(accounts.ProgramAsSigner, false),
		}, accounts.Auctioneer.metas()...),
	}
}

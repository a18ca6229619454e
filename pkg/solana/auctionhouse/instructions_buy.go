package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	BuyInstructionArgsSize = (1 + // trade_state_bump
		1 + // escrow_payment_bump
		8 + // buyer_price
		8) // token_size
)

// BuyInstructionArgs is shared by private and public bids
type BuyInstructionArgs struct {
	TradeStateBump    uint8
	EscrowPaymentBump uint8
	BuyerPrice        uint64
	TokenSize         uint64
}

func (args *BuyInstructionArgs) Unmarshal(data []byte) error {
	t, err := GetInstructionType(data)
	if err != nil {
		return err
	}

	expected := InstructionTypeBuy
	if t.Direct() == InstructionTypePublicBuy {
		expected = InstructionTypePublicBuy
	}
	if err := checkInstructionData(data, expected, BuyInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.TradeStateBump, &offset)
	getUint8(data, &args.EscrowPaymentBump, &offset)
	getUint64(data, &args.BuyerPrice, &offset)
	getUint64(data, &args.TokenSize, &offset)

	return nil
}

// BuyInstructionAccounts places a private bid against a specific
// TokenAccount
type BuyInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	PaymentAccount         ed25519.PublicKey
	TransferAuthority      ed25519.PublicKey
	TreasuryMint           ed25519.PublicKey
	TokenAccount           ed25519.PublicKey
	Metadata               ed25519.PublicKey
	EscrowPaymentAccount   ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey
	BuyerTradeState        ed25519.PublicKey

	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewBuyInstruction(
	accounts *BuyInstructionAccounts,
	args *BuyInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: buyInstructionData(instructionType(InstructionTypeBuy, accounts.Auctioneer), args),

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Wallet, true),
			solana.NewAccountMeta(accounts.PaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TransferAuthority, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewReadonlyAccountMeta(accounts.TokenAccount, false),
			solana.NewReadonlyAccountMeta(accounts.Metadata, false),
			solana.NewAccountMeta(accounts.EscrowPaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.BuyerTradeState, false),
		}, accounts.Auctioneer.metas()...),
	}
}

// PublicBuyInstructionAccounts places a bid on any token account holding
// TokenMint
type PublicBuyInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	PaymentAccount         ed25519.PublicKey
	TransferAuthority      ed25519.PublicKey
	TreasuryMint           ed25519.PublicKey
	TokenMint              ed25519.PublicKey
	Metadata               ed25519.PublicKey
	EscrowPaymentAccount   ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey
	BuyerTradeState        ed25519.PublicKey

	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewPublicBuyInstruction(
	accounts *PublicBuyInstructionAccounts,
	args *BuyInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: buyInstructionData(instructionType(InstructionTypePublicBuy, accounts.Auctioneer), args),

		// Instruction accounts
		Accounts: append([]solana.AccountMeta{
			solana.NewAccountMeta(accounts.Wallet, true),
			solana.NewAccountMeta(accounts.PaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.TransferAuthority, false),
			solana.NewReadonlyAccountMeta(accounts.TreasuryMint, false),
			solana.NewReadonlyAccountMeta(accounts.TokenMint, false),
			solana.NewReadonlyAccountMeta(accounts.Metadata, false),
			solana.NewAccountMeta(accounts.EscrowPaymentAccount, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.BuyerTradeState, false),
		}, accounts.Auctioneer.metas()...),
	}
}

func buyInstructionData(t InstructionType, args *BuyInstructionArgs) []byte {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+BuyInstructionArgsSize)

	putInstructionType(data, t, &offset)
	putUint8(data, args.TradeStateBump, &offset)
	putUint8(data, args.EscrowPaymentBump, &offset)
	putUint64(data, args.BuyerPrice, &offset)
	putUint64(data, args.TokenSize, &offset)

	return data
}

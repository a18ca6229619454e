package auctionhouse

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

const (
	SellInstructionArgsSize = (1 + // trade_state_bump
		1 + // free_trade_state_bump
		1 + // program_as_signer_bump
		8 + // buyer_price
		8) // token_size
)

type SellInstructionArgs struct {
	TradeStateBump      uint8
	FreeTradeStateBump  uint8
	ProgramAsSignerBump uint8
	BuyerPrice          uint64
	TokenSize           uint64
}

func (args *SellInstructionArgs) Unmarshal(data []byte) error {
	if err := checkInstructionData(data, InstructionTypeSell, SellInstructionArgsSize); err != nil {
		return err
	}

	offset := 1
	getUint8(data, &args.TradeStateBump, &offset)
	getUint8(data, &args.FreeTradeStateBump, &offset)
	getUint8(data, &args.ProgramAsSignerBump, &offset)
	getUint64(data, &args.BuyerPrice, &offset)
	getUint64(data, &args.TokenSize, &offset)

	return nil
}

// SellInstructionAccounts lists TokenAccount for sale. When the wallet signs,
// the program as signer PDA is approved as delegate over the listed size.
type SellInstructionAccounts struct {
	Wallet                 ed25519.PublicKey
	TokenAccount           ed25519.PublicKey
	Metadata               ed25519.PublicKey
	Authority              ed25519.PublicKey
	AuctionHouse           ed25519.PublicKey
	AuctionHouseFeeAccount ed25519.PublicKey
	SellerTradeState       ed25519.PublicKey
	FreeSellerTradeState   ed25519.PublicKey
	ProgramAsSigner        ed25519.PublicKey

	WalletIsSigner    bool
	AuthorityIsSigner bool
	Auctioneer        *AuctioneerInstructionAccounts
}

func NewSellInstruction(
	accounts *SellInstructionAccounts,
	args *SellInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+SellInstructionArgsSize)

	putInstructionType(data, instructionType(InstructionTypeSell, accounts.Auctioneer), &offset)
	putUint8(data, args.TradeStateBump, &offset)
	putUint8(data, args.FreeTradeStateBump, &offset)
	putUint8(data, args.ProgramAsSignerBump, &offset)
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
			solana.NewReadonlyAccountMeta(accounts.Metadata, false),
			solana.NewReadonlyAccountMeta(accounts.Authority, accounts.AuthorityIsSigner),
			solana.NewReadonlyAccountMeta(accounts.AuctionHouse, false),
			solana.NewAccountMeta(accounts.AuctionHouseFeeAccount, false),
			solana.NewAccountMeta(accounts.SellerTradeState, false),
			solana.NewAccountMeta(accounts.FreeSellerTradeState, false),
			solana.NewReadonlyAccountMeta(accounts.ProgramAsSigner, false),
		}, accounts.Auctioneer.metas()...),
	}
}

package testenv

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/solana"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// Order describes a listing or bid. Public bids ignore TokenAccount.
type Order struct {
	Wallet       ed25519.PublicKey
	TokenAccount ed25519.PublicKey
	TokenMint    ed25519.PublicKey
	Price        uint64
	Size         uint64
	Public       bool

	WalletIsSigner    bool
	AuthorityIsSigner bool
}

// Sale describes an ExecuteSale. Partial sales set both PartialSize and
// PartialPrice, and the bid is expected at those values.
type Sale struct {
	Buyer        ed25519.PublicKey
	Seller       ed25519.PublicKey
	TokenAccount ed25519.PublicKey
	TokenMint    ed25519.PublicKey
	Price        uint64
	Size         uint64
	PublicBid    bool

	PartialSize  *uint64
	PartialPrice *uint64

	BuyerIsSigner     bool
	SellerIsSigner    bool
	AuthorityIsSigner bool
}

func (h *House) Escrow(t *testing.T, wallet ed25519.PublicKey) (ed25519.PublicKey, uint8) {
	address, bump, err := auctionhouse_program.GetEscrowPaymentAddress(&auctionhouse_program.GetEscrowPaymentAddressArgs{
		AuctionHouse: h.Address,
		Wallet:       wallet,
	})
	require.NoError(t, err)
	return address, bump
}

func (h *House) tradeState(t *testing.T, role auctionhouse_program.TradeStateRole, wallet, tokenAccount, mint ed25519.PublicKey, price, size uint64) (ed25519.PublicKey, uint8) {
	address, bump, err := auctionhouse_program.GetTradeStateAddress(&auctionhouse_program.TradeStateKey{
		Role:         role,
		Wallet:       wallet,
		AuctionHouse: h.Address,
		TokenAccount: tokenAccount,
		TreasuryMint: h.TreasuryMint,
		TokenMint:    mint,
		Price:        price,
		Size:         size,
	})
	require.NoError(t, err)
	return address, bump
}

func (h *House) SellerTradeState(t *testing.T, order *Order) ed25519.PublicKey {
	address, _ := h.tradeState(t, auctionhouse_program.TradeStateRoleSeller, order.Wallet, order.TokenAccount, order.TokenMint, order.Price, order.Size)
	return address
}

func (h *House) FreeSellerTradeState(t *testing.T, order *Order) ed25519.PublicKey {
	address, _ := h.tradeState(t, auctionhouse_program.TradeStateRoleFreeSeller, order.Wallet, order.TokenAccount, order.TokenMint, 0, order.Size)
	return address
}

func (h *House) BuyerTradeState(t *testing.T, order *Order) ed25519.PublicKey {
	role := auctionhouse_program.TradeStateRolePrivateBuyer
	if order.Public {
		role = auctionhouse_program.TradeStateRolePublicBuyer
	}
	address, _ := h.tradeState(t, role, order.Wallet, order.TokenAccount, order.TokenMint, order.Price, order.Size)
	return address
}

// PaymentAccount is where a wallet pays from, and is paid to, on the house
func (h *House) PaymentAccount(t *testing.T, wallet ed25519.PublicKey) ed25519.PublicKey {
	if h.IsNative() {
		return wallet
	}
	return AssociatedTokenAccount(t, wallet, h.TreasuryMint)
}

func (h *House) DepositInstruction(t *testing.T, wallet ed25519.PublicKey, amount uint64, authorityIsSigner bool) solana.Instruction {
	escrow, bump := h.Escrow(t, wallet)
	return auctionhouse_program.NewDepositInstruction(
		&auctionhouse_program.DepositInstructionAccounts{
			Wallet:                 wallet,
			PaymentAccount:         h.PaymentAccount(t, wallet),
			TransferAuthority:      wallet,
			EscrowPaymentAccount:   escrow,
			TreasuryMint:           h.TreasuryMint,
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			AuthorityIsSigner:      authorityIsSigner,
		},
		&auctionhouse_program.DepositInstructionArgs{
			EscrowPaymentBump: bump,
			Amount:            amount,
		},
	)
}

func (h *House) WithdrawInstruction(t *testing.T, wallet ed25519.PublicKey, amount uint64, walletIsSigner, authorityIsSigner bool) solana.Instruction {
	escrow, bump := h.Escrow(t, wallet)
	return auctionhouse_program.NewWithdrawInstruction(
		&auctionhouse_program.WithdrawInstructionAccounts{
			Wallet:                 wallet,
			ReceiptAccount:         h.PaymentAccount(t, wallet),
			EscrowPaymentAccount:   escrow,
			TreasuryMint:           h.TreasuryMint,
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			WalletIsSigner:         walletIsSigner,
			AuthorityIsSigner:      authorityIsSigner,
		},
		&auctionhouse_program.WithdrawInstructionArgs{
			EscrowPaymentBump: bump,
			Amount:            amount,
		},
	)
}

func (h *House) SellInstruction(t *testing.T, order *Order) solana.Instruction {
	sellerTradeState, bump := h.tradeState(t, auctionhouse_program.TradeStateRoleSeller, order.Wallet, order.TokenAccount, order.TokenMint, order.Price, order.Size)
	freeTradeState, freeBump := h.tradeState(t, auctionhouse_program.TradeStateRoleFreeSeller, order.Wallet, order.TokenAccount, order.TokenMint, 0, order.Size)
	programAsSigner, programAsSignerBump := ProgramAsSigner(t)

	return auctionhouse_program.NewSellInstruction(
		&auctionhouse_program.SellInstructionAccounts{
			Wallet:                 order.Wallet,
			TokenAccount:           order.TokenAccount,
			Metadata:               Metadata(t, order.TokenMint),
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			SellerTradeState:       sellerTradeState,
			FreeSellerTradeState:   freeTradeState,
			ProgramAsSigner:        programAsSigner,
			WalletIsSigner:         order.WalletIsSigner,
			AuthorityIsSigner:      order.AuthorityIsSigner,
		},
		&auctionhouse_program.SellInstructionArgs{
			TradeStateBump:      bump,
			FreeTradeStateBump:  freeBump,
			ProgramAsSignerBump: programAsSignerBump,
			BuyerPrice:          order.Price,
			TokenSize:           order.Size,
		},
	)
}

func (h *House) BuyInstruction(t *testing.T, order *Order) solana.Instruction {
	escrow, escrowBump := h.Escrow(t, order.Wallet)

	args := &auctionhouse_program.BuyInstructionArgs{
		EscrowPaymentBump: escrowBump,
		BuyerPrice:        order.Price,
		TokenSize:         order.Size,
	}

	if order.Public {
		_, args.TradeStateBump = h.tradeState(t, auctionhouse_program.TradeStateRolePublicBuyer, order.Wallet, nil, order.TokenMint, order.Price, order.Size)
		return auctionhouse_program.NewPublicBuyInstruction(
			&auctionhouse_program.PublicBuyInstructionAccounts{
				Wallet:                 order.Wallet,
				PaymentAccount:         h.PaymentAccount(t, order.Wallet),
				TransferAuthority:      order.Wallet,
				TreasuryMint:           h.TreasuryMint,
				TokenMint:              order.TokenMint,
				Metadata:               Metadata(t, order.TokenMint),
				EscrowPaymentAccount:   escrow,
				Authority:              Pub(h.Authority),
				AuctionHouse:           h.Address,
				AuctionHouseFeeAccount: h.FeeAccount,
				BuyerTradeState:        h.BuyerTradeState(t, order),
				AuthorityIsSigner:      order.AuthorityIsSigner,
			},
			args,
		)
	}

	_, args.TradeStateBump = h.tradeState(t, auctionhouse_program.TradeStateRolePrivateBuyer, order.Wallet, order.TokenAccount, order.TokenMint, order.Price, order.Size)
	return auctionhouse_program.NewBuyInstruction(
		&auctionhouse_program.BuyInstructionAccounts{
			Wallet:                 order.Wallet,
			PaymentAccount:         h.PaymentAccount(t, order.Wallet),
			TransferAuthority:      order.Wallet,
			TreasuryMint:           h.TreasuryMint,
			TokenAccount:           order.TokenAccount,
			Metadata:               Metadata(t, order.TokenMint),
			EscrowPaymentAccount:   escrow,
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			BuyerTradeState:        h.BuyerTradeState(t, order),
			AuthorityIsSigner:      order.AuthorityIsSigner,
		},
		args,
	)
}

// CancelInstruction cancels the listing or bid described by order
func (h *House) CancelInstruction(t *testing.T, order *Order) solana.Instruction {
	tradeState := h.SellerTradeState(t, order)
	if order.Public {
		tradeState = h.BuyerTradeState(t, order)
	}

	return auctionhouse_program.NewCancelInstruction(
		&auctionhouse_program.CancelInstructionAccounts{
			Wallet:                 order.Wallet,
			TokenAccount:           order.TokenAccount,
			TokenMint:              order.TokenMint,
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			TradeState:             tradeState,
			WalletIsSigner:         order.WalletIsSigner,
			AuthorityIsSigner:      order.AuthorityIsSigner,
		},
		&auctionhouse_program.CancelInstructionArgs{
			BuyerPrice: order.Price,
			TokenSize:  order.Size,
		},
	)
}

func (h *House) ExecuteSaleInstruction(t *testing.T, sale *Sale) solana.Instruction {
	escrow, escrowBump := h.Escrow(t, sale.Buyer)
	programAsSigner, programAsSignerBump := ProgramAsSigner(t)
	freeTradeState, freeBump := h.tradeState(t, auctionhouse_program.TradeStateRoleFreeSeller, sale.Seller, sale.TokenAccount, sale.TokenMint, 0, sale.Size)

	bidPrice, bidSize := sale.Price, sale.Size
	if sale.PartialSize != nil && sale.PartialPrice != nil {
		bidPrice, bidSize = *sale.PartialPrice, *sale.PartialSize
	}
	bid := &Order{
		Wallet:       sale.Buyer,
		TokenAccount: sale.TokenAccount,
		TokenMint:    sale.TokenMint,
		Price:        bidPrice,
		Size:         bidSize,
		Public:       sale.PublicBid,
	}
	listing := &Order{
		Wallet:       sale.Seller,
		TokenAccount: sale.TokenAccount,
		TokenMint:    sale.TokenMint,
		Price:        sale.Price,
		Size:         sale.Size,
	}

	return auctionhouse_program.NewExecuteSaleInstruction(
		&auctionhouse_program.ExecuteSaleInstructionAccounts{
			Buyer:                  sale.Buyer,
			Seller:                 sale.Seller,
			TokenAccount:           sale.TokenAccount,
			TokenMint:              sale.TokenMint,
			Metadata:               Metadata(t, sale.TokenMint),
			TreasuryMint:           h.TreasuryMint,
			EscrowPaymentAccount:   escrow,
			SellerPaymentReceipt:   h.PaymentAccount(t, sale.Seller),
			BuyerReceiptToken:      AssociatedTokenAccount(t, sale.Buyer, sale.TokenMint),
			Authority:              Pub(h.Authority),
			AuctionHouse:           h.Address,
			AuctionHouseFeeAccount: h.FeeAccount,
			AuctionHouseTreasury:   h.Treasury,
			BuyerTradeState:        h.BuyerTradeState(t, bid),
			SellerTradeState:       h.SellerTradeState(t, listing),
			FreeTradeState:         freeTradeState,
			ProgramAsSigner:        programAsSigner,
			BuyerIsSigner:          sale.BuyerIsSigner,
			SellerIsSigner:         sale.SellerIsSigner,
			AuthorityIsSigner:      sale.AuthorityIsSigner,
		},
		&auctionhouse_program.ExecuteSaleInstructionArgs{
			EscrowPaymentBump:   escrowBump,
			FreeTradeStateBump:  freeBump,
			ProgramAsSignerBump: programAsSignerBump,
			BuyerPrice:          sale.Price,
			TokenSize:           sale.Size,
			PartialOrderSize:    sale.PartialSize,
			PartialOrderPrice:   sale.PartialPrice,
		},
	)
}

func ProgramAsSigner(t *testing.T) (ed25519.PublicKey, uint8) {
	address, bump, err := auctionhouse_program.GetProgramAsSignerAddress()
	require.NoError(t, err)
	return address, bump
}

func Metadata(t *testing.T, mint ed25519.PublicKey) ed25519.PublicKey {
	address, _, err := auctionhouse_program.GetMetadataAddress(&auctionhouse_program.GetMetadataAddressArgs{
		Mint: mint,
	})
	require.NoError(t, err)
	return address
}

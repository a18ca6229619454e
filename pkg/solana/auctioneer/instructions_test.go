package auctioneer

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

func TestGetAuctioneerAuthorityAddress(t *testing.T) {
	auctionHouse := newTestKey(t)

	address, bump, err := GetAuctioneerAuthorityAddress(&GetAuctioneerAuthorityAddressArgs{
		AuctionHouse: auctionHouse,
	})
	require.NoError(t, err)
	require.NoError(t, solana.VerifyProgramAddress(PROGRAM_ID, address, bump, AuctioneerAuthoritySeeds(auctionHouse)...))

	other, _, err := GetAuctioneerAuthorityAddress(&GetAuctioneerAuthorityAddressArgs{
		AuctionHouse: newTestKey(t),
	})
	require.NoError(t, err)
	assert.NotEqualValues(t, address, other)
}

func TestNewForwardedInstruction(t *testing.T) {
	cancel := auctionhouse.NewCancelInstruction(&auctionhouse.CancelInstructionAccounts{
		Wallet:                 newTestKey(t),
		TokenAccount:           newTestKey(t),
		TokenMint:              newTestKey(t),
		Authority:              newTestKey(t),
		AuctionHouse:           newTestKey(t),
		AuctionHouseFeeAccount: newTestKey(t),
		TradeState:             newTestKey(t),
		WalletIsSigner:         true,
	}, &auctionhouse.CancelInstructionArgs{BuyerPrice: 100, TokenSize: 1})

	accounts := &ForwardedAccounts{
		AuctioneerAuthority: newTestKey(t),
		AhAuctioneerPda:     newTestKey(t),
	}

	forwarded, err := NewForwardedInstruction(cancel, accounts)
	require.NoError(t, err)
	assert.EqualValues(t, PROGRAM_ADDRESS, forwarded.Program)
	assert.Equal(t, cancel.Data, forwarded.Data)
	require.Len(t, forwarded.Accounts, len(cancel.Accounts)+3)
	assert.True(t, forwarded.Accounts[0].IsSigner)

	keys := make([]ed25519.PublicKey, len(forwarded.Accounts))
	for i, meta := range forwarded.Accounts {
		keys[i] = meta.PublicKey
	}

	inner, decoded, err := DecodeForwardedAccounts(keys)
	require.NoError(t, err)
	assert.Len(t, inner, len(cancel.Accounts))
	assert.EqualValues(t, accounts.AuctioneerAuthority, decoded.AuctioneerAuthority)
	assert.EqualValues(t, accounts.AhAuctioneerPda, decoded.AhAuctioneerPda)
	assert.EqualValues(t, auctionhouse.PROGRAM_ID, decoded.AuctionHouseProgram)

	// Only instructions with an auctioneer form can be forwarded
	delegate := auctionhouse.NewDelegateAuctioneerInstruction(&auctionhouse.DelegateAuctioneerInstructionAccounts{
		AuctionHouse:        newTestKey(t),
		Authority:           newTestKey(t),
		AuctioneerAuthority: newTestKey(t),
		AhAuctioneerPda:     newTestKey(t),
	}, &auctionhouse.DelegateAuctioneerInstructionArgs{})
	_, err = NewForwardedInstruction(delegate, accounts)
	assert.Equal(t, ErrInvalidInstructionData, err)

	_, _, err = DecodeForwardedAccounts(keys[:2])
	assert.Equal(t, ErrInvalidInstructionData, err)
}

func newTestKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func TestCallerAccountIndexes(t *testing.T) {
	wallet, authority, auctionHouse := newTestKey(t), newTestKey(t), newTestKey(t)

	cancel := auctionhouse.NewCancelInstruction(&auctionhouse.CancelInstructionAccounts{
		Wallet:                 wallet,
		TokenAccount:           newTestKey(t),
		TokenMint:              newTestKey(t),
		Authority:              authority,
		AuctionHouse:           auctionHouse,
		AuctionHouseFeeAccount: newTestKey(t),
		TradeState:             newTestKey(t),
	}, &auctionhouse.CancelInstructionArgs{})

	indexes, ok := CallerAccountIndexes(auctionhouse.InstructionTypeCancel)
	require.True(t, ok)
	require.Len(t, indexes, 2)
	assert.EqualValues(t, wallet, cancel.Accounts[indexes[0]].PublicKey)
	assert.EqualValues(t, authority, cancel.Accounts[indexes[1]].PublicKey)

	auctionHouseIndex, ok := AuctionHouseAccountIndex(auctionhouse.InstructionTypeCancel)
	require.True(t, ok)
	assert.EqualValues(t, auctionHouse, cancel.Accounts[auctionHouseIndex].PublicKey)

	buyer, seller := newTestKey(t), newTestKey(t)
	sale := auctionhouse.NewExecuteSaleInstruction(&auctionhouse.ExecuteSaleInstructionAccounts{
		Buyer:                  buyer,
		Seller:                 seller,
		TokenAccount:           newTestKey(t),
		TokenMint:              newTestKey(t),
		Metadata:               newTestKey(t),
		TreasuryMint:           newTestKey(t),
		EscrowPaymentAccount:   newTestKey(t),
		SellerPaymentReceipt:   newTestKey(t),
		BuyerReceiptToken:      newTestKey(t),
		Authority:              authority,
		AuctionHouse:           auctionHouse,
		AuctionHouseFeeAccount: newTestKey(t),
		AuctionHouseTreasury:   newTestKey(t),
		BuyerTradeState:        newTestKey(t),
		SellerTradeState:       newTestKey(t),
		FreeTradeState:         newTestKey(t),
		ProgramAsSigner:        newTestKey(t),
	}, &auctionhouse.ExecuteSaleInstructionArgs{})

	indexes, ok = CallerAccountIndexes(auctionhouse.InstructionTypeAuctioneerExecuteSale)
	require.True(t, ok)
	require.Len(t, indexes, 3)
	assert.EqualValues(t, buyer, sale.Accounts[indexes[0]].PublicKey)
	assert.EqualValues(t, seller, sale.Accounts[indexes[1]].PublicKey)
	assert.EqualValues(t, authority, sale.Accounts[indexes[2]].PublicKey)

	_, ok = CallerAccountIndexes(auctionhouse.InstructionTypeUpdateAuctionHouse)
	assert.False(t, ok)
}

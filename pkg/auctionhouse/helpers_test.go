package auctionhouse_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/auctionhouse/testenv"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	_ "github.com/code-payments/auction-house-server/pkg/testutil"
)

// market is an auction house with a seller holding tokens of a single mint,
// and a buyer
type market struct {
	env   *testenv.Env
	house *testenv.House

	seller ed25519.PrivateKey
	buyer  ed25519.PrivateKey

	mint         ed25519.PublicKey
	tokenAccount ed25519.PublicKey
}

func newNativeMarket(t *testing.T, cfg *testenv.HouseConfig, supply uint64) *market {
	env := testenv.New(t, nil)
	return newMarket(t, env, env.CreateHouse(t, cfg), supply)
}

func newMarket(t *testing.T, env *testenv.Env, house *testenv.House, supply uint64) *market {
	seller := env.NewWallet(t, testenv.DefaultWalletBalance)
	buyer := env.NewWallet(t, testenv.DefaultWalletBalance)

	mint, tokenAccounts := env.NewMint(t, testenv.TokenBalance{Owner: testenv.Pub(seller), Amount: supply})

	return &market{
		env:          env,
		house:        house,
		seller:       seller,
		buyer:        buyer,
		mint:         mint,
		tokenAccount: tokenAccounts[0],
	}
}

func (m *market) listing(price, size uint64) *testenv.Order {
	return &testenv.Order{
		Wallet:         testenv.Pub(m.seller),
		TokenAccount:   m.tokenAccount,
		TokenMint:      m.mint,
		Price:          price,
		Size:           size,
		WalletIsSigner: true,
	}
}

func (m *market) bid(price, size uint64) *testenv.Order {
	return &testenv.Order{
		Wallet:         testenv.Pub(m.buyer),
		TokenAccount:   m.tokenAccount,
		TokenMint:      m.mint,
		Price:          price,
		Size:           size,
		WalletIsSigner: true,
	}
}

func (m *market) sale(price, size uint64) *testenv.Sale {
	return &testenv.Sale{
		Buyer:         testenv.Pub(m.buyer),
		Seller:        testenv.Pub(m.seller),
		TokenAccount:  m.tokenAccount,
		TokenMint:     m.mint,
		Price:         price,
		Size:          size,
		BuyerIsSigner: true,
	}
}

func (m *market) sell(t *testing.T, order *testenv.Order) (*runtime.Result, error) {
	return m.submit(t, m.seller, m.house.SellInstruction(t, order))
}

func (m *market) buy(t *testing.T, order *testenv.Order) (*runtime.Result, error) {
	return m.submit(t, m.buyer, m.house.BuyInstruction(t, order))
}

func (m *market) executeSale(t *testing.T, sale *testenv.Sale) (*runtime.Result, error) {
	return m.submit(t, m.buyer, m.house.ExecuteSaleInstruction(t, sale))
}

// submit pays with payer, adding the house authority as a signer when an
// instruction requires it
func (m *market) submit(t *testing.T, payer ed25519.PrivateKey, instructions ...solana.Instruction) (*runtime.Result, error) {
	authority := testenv.Pub(m.house.Authority)

	var authorityIsSigner bool
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			authorityIsSigner = authorityIsSigner || (meta.IsSigner && meta.PublicKey.Equal(authority))
		}
	}

	signers := []ed25519.PrivateKey{payer}
	if authorityIsSigner {
		signers = append(signers, m.house.Authority)
	}
	return m.env.Submit(t, payer, signers, instructions...)
}

// fundFeeAccount lets the fee account pay for house signed instructions
func (m *market) fundFeeAccount(t *testing.T, lamports uint64) (*runtime.Result, error) {
	return m.submit(t, m.house.Authority, system.Transfer(testenv.Pub(m.house.Authority), m.house.FeeAccount, lamports))
}

func signers(keys ...ed25519.PrivateKey) []ed25519.PrivateKey {
	return keys
}

// eventNames lists the events of a committed transaction in emission order
func eventNames(result *runtime.Result) []string {
	var names []string
	for _, event := range result.Events {
		names = append(names, event.EventName())
	}
	return names
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func requireOpen(t *testing.T, env *testenv.Env, tradeState ed25519.PublicKey) {
	require.True(t, env.Exists(t, tradeState), "trade state should be open")
}

func requireAbsent(t *testing.T, env *testenv.Env, tradeState ed25519.PublicKey) {
	require.False(t, env.Exists(t, tradeState), "trade state should be absent")
}

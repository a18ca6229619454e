// Package testenv runs the auction house against an in memory runtime, with
// helpers to seed accounts and build instructions with their derived
// addresses and bumps.
package testenv

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/auctioneer"
	"github.com/code-payments/auction-house-server/pkg/auctionhouse"
	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/data/account/memory"
	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/token"
)

const DefaultWalletBalance = 10_000_000_000

type Env struct {
	Ctx      context.Context
	Runtime  *runtime.Runtime
	Accounts account.Store
	Now      time.Time
}

// New returns an environment with the auction house and auctioneer programs
// registered
func New(t *testing.T, overrides *auctionhouse.Overrides, opts ...auctionhouse.Option) *Env {
	if overrides == nil {
		overrides = &auctionhouse.Overrides{}
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := memory.New()

	rt := runtime.New(
		store,
		runtime.WithOverrides(&runtime.Overrides{StripedLockParallelization: 4}),
		runtime.WithClock(runtime.FixedClock{At: now}),
	)
	require.NoError(t, rt.Register(
		auctionhouse.NewProgram(auctionhouse.WithOverrides(overrides), opts...),
		auctioneer.NewProgram(),
	))

	return &Env{
		Ctx:      context.Background(),
		Runtime:  rt,
		Accounts: store,
		Now:      now,
	}
}

// Rent is the rent schedule transactions execute with
func (e *Env) Rent() runtime.RentSchedule {
	return e.Runtime.Rent(e.Ctx)
}

func (e *Env) NewWallet(t *testing.T, lamports uint64) ed25519.PrivateKey {
	key := NewKey(t)
	require.NoError(t, runtime.NewGenesis(e.Rent()).AddWallet(Pub(key), lamports).Commit(e.Ctx, e.Accounts))
	return key
}

type TokenBalance struct {
	Owner  ed25519.PublicKey
	Amount uint64
}

// NewMint adds a mint with an associated token account for every balance,
// returning the mint and token account addresses in balance order
func (e *Env) NewMint(t *testing.T, balances ...TokenBalance) (ed25519.PublicKey, []ed25519.PublicKey) {
	mint := Pub(NewKey(t))

	genesis := runtime.NewGenesis(e.Rent()).AddMint(mint, Pub(NewKey(t)), 0)

	tokenAccounts := make([]ed25519.PublicKey, len(balances))
	for i, balance := range balances {
		tokenAccounts[i] = genesis.AddAssociatedTokenAccount(balance.Owner, mint, balance.Amount)
	}

	require.NoError(t, genesis.Commit(e.Ctx, e.Accounts))
	return mint, tokenAccounts
}

func (e *Env) Submit(t *testing.T, payer ed25519.PrivateKey, signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*runtime.Result, error) {
	tx := solana.NewTransaction(Pub(payer), instructions...)
	require.NoError(t, tx.Sign(signers...))
	return e.Runtime.Submit(e.Ctx, &tx)
}

// Record returns the stored account, or nil if it doesn't exist
func (e *Env) Record(t *testing.T, key ed25519.PublicKey) *account.Record {
	record, err := e.Accounts.Get(e.Ctx, base58.Encode(key))
	if err == account.ErrAccountNotFound {
		return nil
	}
	require.NoError(t, err)
	return record
}

func (e *Env) Exists(t *testing.T, key ed25519.PublicKey) bool {
	return e.Record(t, key) != nil
}

func (e *Env) Lamports(t *testing.T, key ed25519.PublicKey) uint64 {
	record := e.Record(t, key)
	if record == nil {
		return 0
	}
	return record.Lamports
}

func (e *Env) TokenAccount(t *testing.T, key ed25519.PublicKey) *token.Account {
	record := e.Record(t, key)
	require.NotNil(t, record, "token account %s doesn't exist", base58.Encode(key))

	var state token.Account
	require.True(t, state.Unmarshal(record.Data))
	return &state
}

// TokenBalance returns the amount held by a token account, or 0 if it doesn't
// exist
func (e *Env) TokenBalance(t *testing.T, key ed25519.PublicKey) uint64 {
	if !e.Exists(t, key) {
		return 0
	}
	return e.TokenAccount(t, key).Amount
}

// Snapshot captures the stored state of accounts, with nil entries for those
// that don't exist
func (e *Env) Snapshot(t *testing.T, keys ...ed25519.PublicKey) []*account.Record {
	res := make([]*account.Record, len(keys))
	for i, key := range keys {
		res[i] = e.Record(t, key)
	}
	return res
}

func NewKey(t *testing.T) ed25519.PrivateKey {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return key
}

func Pub(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

func AssociatedTokenAccount(t *testing.T, wallet, mint ed25519.PublicKey) ed25519.PublicKey {
	address, err := token.GetAssociatedAccount(wallet, mint)
	require.NoError(t, err)
	return address
}

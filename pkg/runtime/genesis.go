package runtime

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/data/account"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	"github.com/code-payments/auction-house-server/pkg/solana/token"
)

// Genesis seeds an account store with wallets, mints and token accounts,
// bypassing program execution. It's meant for bootstrapping environments and
// tests, never for live state.
type Genesis struct {
	rent RentSchedule

	order    []string
	accounts map[string]*accountState
	mints    map[string]*token.Mint

	err error
}

func NewGenesis(rent RentSchedule) *Genesis {
	return &Genesis{
		rent:     rent,
		accounts: make(map[string]*accountState),
		mints:    make(map[string]*token.Mint),
	}
}

// AddAccount adds an arbitrary account
func (g *Genesis) AddAccount(address, owner ed25519.PublicKey, lamports uint64, data []byte) *Genesis {
	if _, ok := g.accounts[encode(address)]; ok {
		g.fail(errors.Errorf("account %s already added", encode(address)))
		return g
	}

	g.order = append(g.order, encode(address))
	g.accounts[encode(address)] = &accountState{
		address:  address,
		owner:    owner,
		lamports: lamports,
		data:     data,
	}
	return g
}

// AddWallet adds a system account holding lamports
func (g *Genesis) AddWallet(wallet ed25519.PublicKey, lamports uint64) *Genesis {
	return g.AddAccount(wallet, system.ProgramKey, lamports, nil)
}

// AddMint adds an initialized mint. Supply tracks the token accounts added
// afterwards.
func (g *Genesis) AddMint(mint, authority ed25519.PublicKey, decimals byte) *Genesis {
	state := &token.Mint{
		MintAuthority: authority,
		Decimals:      decimals,
		IsInitialized: true,
	}
	g.mints[encode(mint)] = state
	return g.AddAccount(mint, token.ProgramKey, g.rent.MinimumBalance(token.MintSize), nil)
}

// AddTokenAccount adds an initialized token account for a mint added earlier
func (g *Genesis) AddTokenAccount(address, mint, owner ed25519.PublicKey, amount uint64) *Genesis {
	state, ok := g.mints[encode(mint)]
	if !ok {
		g.fail(errors.Errorf("mint %s must be added before its token accounts", encode(mint)))
		return g
	}
	if state.Supply+amount < state.Supply {
		g.fail(ErrArithmeticOverflow)
		return g
	}
	state.Supply += amount

	tokenAccount := token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.AccountStateInitialized,
	}
	return g.AddAccount(address, token.ProgramKey, g.rent.MinimumBalance(token.AccountSize), tokenAccount.Marshal())
}

// AddAssociatedTokenAccount adds the associated token account of wallet for
// mint, returning its address
func (g *Genesis) AddAssociatedTokenAccount(wallet, mint ed25519.PublicKey, amount uint64) ed25519.PublicKey {
	address, err := token.GetAssociatedAccount(wallet, mint)
	if err != nil {
		g.fail(err)
		return nil
	}
	g.AddTokenAccount(address, mint, wallet, amount)
	return address
}

// Commit saves every added account. All accounts must be new.
func (g *Genesis) Commit(ctx context.Context, store account.Store) error {
	if g.err != nil {
		return g.err
	}

	now := time.Now()

	records := make([]*account.Record, 0, len(g.order))
	for _, address := range g.order {
		state := g.accounts[address]

		data := state.data
		if mint, ok := g.mints[address]; ok {
			data = mint.Marshal()
		}

		records = append(records, &account.Record{
			Address:       address,
			Owner:         encode(state.owner),
			Lamports:      state.lamports,
			Data:          data,
			LastUpdatedAt: now,
		})
	}

	if err := store.SaveBatch(ctx, records...); err != nil {
		return errors.Wrap(err, "error saving genesis accounts")
	}
	return nil
}

func (g *Genesis) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

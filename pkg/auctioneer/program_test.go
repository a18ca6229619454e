package auctioneer_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/auctionhouse/testenv"
	"github.com/code-payments/auction-house-server/pkg/solana"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	_ "github.com/code-payments/auction-house-server/pkg/testutil"

	auctioneer_program "github.com/code-payments/auction-house-server/pkg/solana/auctioneer"
	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

type testEnv struct {
	env   *testenv.Env
	house *testenv.House

	seller, buyer ed25519.PrivateKey
	mint          ed25519.PublicKey
	tokenAccount  ed25519.PublicKey
}

func setup(t *testing.T, scopes auctionhouse_program.AuthorityScopes) *testEnv {
	return setupHouse(t, &testenv.HouseConfig{SellerFeeBasisPoints: 100}, scopes)
}

func setupHouse(t *testing.T, cfg *testenv.HouseConfig, scopes auctionhouse_program.AuthorityScopes) *testEnv {
	env := testenv.New(t, nil)
	house := env.CreateHouse(t, cfg)

	seller := env.NewWallet(t, testenv.DefaultWalletBalance)
	buyer := env.NewWallet(t, testenv.DefaultWalletBalance)
	mint, tokenAccounts := env.NewMint(t, testenv.TokenBalance{Owner: testenv.Pub(seller), Amount: 1})

	authority := testenv.Pub(house.Authority)

	// The fee account pays for everything the auctioneer signs for
	_, err := env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, system.Transfer(authority, house.FeeAccount, 1_000_000_000))
	require.NoError(t, err)

	_, err = env.Submit(t, house.Authority, []ed25519.PrivateKey{house.Authority}, house.DelegateAuctioneerInstruction(t, scopes))
	require.NoError(t, err)

	return &testEnv{
		env:          env,
		house:        house,
		seller:       seller,
		buyer:        buyer,
		mint:         mint,
		tokenAccount: tokenAccounts[0],
	}
}

func (e *testEnv) listing(price uint64) *testenv.Order {
	return &testenv.Order{
		Wallet:         testenv.Pub(e.seller),
		TokenAccount:   e.tokenAccount,
		TokenMint:      e.mint,
		Price:          price,
		Size:           1,
		WalletIsSigner: true,
	}
}

func (e *testEnv) bid(price uint64) *testenv.Order {
	return &testenv.Order{
		Wallet:         testenv.Pub(e.buyer),
		TokenAccount:   e.tokenAccount,
		TokenMint:      e.mint,
		Price:          price,
		Size:           1,
		WalletIsSigner: true,
	}
}

func (e *testEnv) publicBid(price uint64) *testenv.Order {
	bid := e.bid(price)
	bid.Public = true
	return bid
}

func (e *testEnv) submit(t *testing.T, payer ed25519.PrivateKey, ix solana.Instruction) error {
	_, err := e.env.Submit(t, payer, []ed25519.PrivateKey{payer}, ix)
	return err
}

func TestForward_DelegatedHouse(t *testing.T) {
	e := setup(t, auctionhouse_program.NewAuthorityScopes(
		auctionhouse_program.AuthorityScopeBuy,
		auctionhouse_program.AuthorityScopeExecuteSale,
	))

	state := e.house.State(t)
	require.True(t, state.HasAuctioneer)
	assert.EqualValues(t, e.house.AuctioneerRecord(t), state.Auctioneer)

	// Delegating twice is rejected
	err := e.submit(t, e.house.Authority, e.house.DelegateAuctioneerInstruction(t, auctionhouse_program.AllAuthorityScopes()))
	assert.ErrorIs(t, err, auctionhouse_program.ErrAuctionHouseAlreadyDelegated)

	listing := e.listing(1_000)
	tradeState := e.house.SellerTradeState(t, listing)

	// Direct instructions are no longer accepted
	err = e.submit(t, e.seller, e.house.SellInstruction(t, listing))
	assert.ErrorIs(t, err, auctionhouse_program.ErrMustUseAuctioneerHandler)

	// The auctioneer can't sell without the scope, and nothing changes
	before := e.env.Snapshot(t, tradeState, e.tokenAccount, e.house.FeeAccount, testenv.Pub(e.seller))
	err = e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, listing)))
	assert.ErrorIs(t, err, auctionhouse_program.ErrMissingAuctioneerScope)
	assert.Equal(t, before, e.env.Snapshot(t, tradeState, e.tokenAccount, e.house.FeeAccount, testenv.Pub(e.seller)))

	err = e.submit(t, e.house.Authority, e.house.UpdateAuctioneerInstruction(t, auctionhouse_program.AllAuthorityScopes()))
	require.NoError(t, err)

	err = e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, listing)))
	require.NoError(t, err)
	assert.True(t, e.env.Exists(t, tradeState))

	bid := e.bid(1_000)
	err = e.submit(t, e.buyer, e.house.Forward(t, e.house.BuyInstruction(t, bid)))
	require.NoError(t, err)

	sellerBefore := e.env.Lamports(t, testenv.Pub(e.seller))

	sale := e.house.ExecuteSaleInstruction(t, &testenv.Sale{
		Buyer:        testenv.Pub(e.buyer),
		Seller:       testenv.Pub(e.seller),
		TokenAccount: e.tokenAccount,
		TokenMint:    e.mint,
		Price:        1_000,
		Size:         1,
	})
	err = e.submit(t, e.buyer, e.house.Forward(t, sale))
	require.NoError(t, err)

	assert.False(t, e.env.Exists(t, tradeState))
	assert.False(t, e.env.Exists(t, e.house.BuyerTradeState(t, bid)))
	assert.EqualValues(t, sellerBefore+990, e.env.Lamports(t, testenv.Pub(e.seller)))
	assert.EqualValues(t, 1, e.env.TokenBalance(t, testenv.AssociatedTokenAccount(t, testenv.Pub(e.buyer), e.mint)))
}

func TestForward_WalletKeepsDirectCancelAndWithdraw(t *testing.T) {
	e := setup(t, auctionhouse_program.AllAuthorityScopes().Without(auctionhouse_program.AuthorityScopeCancel).Without(auctionhouse_program.AuthorityScopeWithdraw))

	buyer := testenv.Pub(e.buyer)
	bid := e.bid(1_000)
	tradeState := e.house.BuyerTradeState(t, bid)
	escrow, _ := e.house.Escrow(t, buyer)

	err := e.submit(t, e.buyer, e.house.Forward(t, e.house.BuyInstruction(t, bid)))
	require.NoError(t, err)
	require.True(t, e.env.Exists(t, tradeState))

	// Without the scopes the auctioneer can't cancel or withdraw
	err = e.submit(t, e.buyer, e.house.Forward(t, e.house.CancelInstruction(t, bid)))
	assert.ErrorIs(t, err, auctionhouse_program.ErrMissingAuctioneerScope)
	err = e.submit(t, e.buyer, e.house.Forward(t, e.house.WithdrawInstruction(t, buyer, 1_000, true, false)))
	assert.ErrorIs(t, err, auctionhouse_program.ErrMissingAuctioneerScope)

	// The wallet can always cancel and withdraw its own
	err = e.submit(t, e.buyer, e.house.CancelInstruction(t, bid))
	require.NoError(t, err)
	assert.False(t, e.env.Exists(t, tradeState))

	err = e.submit(t, e.buyer, e.house.WithdrawInstruction(t, buyer, 1_000, true, false))
	require.NoError(t, err)
	assert.EqualValues(t, e.env.Rent().MinimumBalance(0), e.env.Lamports(t, escrow))

	// But not through the house authority
	err = e.submit(t, e.house.Authority, e.house.WithdrawInstruction(t, buyer, 0, false, true))
	assert.ErrorIs(t, err, auctionhouse_program.ErrMustUseAuctioneerHandler)
}

func TestForward_InvalidForwarding(t *testing.T) {
	e := setup(t, auctionhouse_program.AllAuthorityScopes())

	listing := e.listing(1_000)

	// Admin instructions have no auctioneer form
	_, err := auctioneer_program.NewForwardedInstruction(e.house.UpdateInstruction(&auctionhouse_program.UpdateAuctionHouseInstructionArgs{}), &auctioneer_program.ForwardedAccounts{
		AuctioneerAuthority: e.house.AuctioneerAuthority(t),
		AhAuctioneerPda:     e.house.AuctioneerRecord(t),
	})
	assert.ErrorIs(t, err, auctioneer_program.ErrInvalidInstructionData)

	// The trailing authority must be the house's auctioneer authority address
	forwarded, err := auctioneer_program.NewForwardedInstruction(e.house.SellInstruction(t, listing), &auctioneer_program.ForwardedAccounts{
		AuctioneerAuthority: testenv.Pub(testenv.NewKey(t)),
		AhAuctioneerPda:     e.house.AuctioneerRecord(t),
	})
	require.NoError(t, err)
	err = e.submit(t, e.seller, forwarded)
	assert.ErrorIs(t, err, auctioneer_program.ErrInvalidAuthority)

	// And the wrapped program must be the auction house
	forwarded, err = auctioneer_program.NewForwardedInstruction(e.house.SellInstruction(t, listing), &auctioneer_program.ForwardedAccounts{
		AuctioneerAuthority: e.house.AuctioneerAuthority(t),
		AhAuctioneerPda:     e.house.AuctioneerRecord(t),
		AuctionHouseProgram: system.ProgramKey,
	})
	require.NoError(t, err)
	err = e.submit(t, e.seller, forwarded)
	assert.ErrorIs(t, err, auctioneer_program.ErrInvalidProgram)

	assert.False(t, e.env.Exists(t, e.house.SellerTradeState(t, listing)))
}

func TestForward_RequiresCallerSignature(t *testing.T) {
	e := setup(t, auctionhouse_program.AllAuthorityScopes())
	buyer := testenv.Pub(e.buyer)
	attacker := e.env.NewWallet(t, testenv.DefaultWalletBalance)

	listing := e.listing(1_000)
	bid := e.bid(1_000)
	require.NoError(t, e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, listing))))
	require.NoError(t, e.submit(t, e.buyer, e.house.Forward(t, e.house.BuyInstruction(t, bid))))

	escrow, _ := e.house.Escrow(t, buyer)
	watched := []ed25519.PublicKey{
		e.house.SellerTradeState(t, listing),
		e.house.BuyerTradeState(t, bid),
		escrow,
		e.tokenAccount,
		e.house.FeeAccount,
		testenv.Pub(e.seller),
		buyer,
	}
	before := e.env.Snapshot(t, watched...)

	unsignedListing := *listing
	unsignedListing.WalletIsSigner = false
	unsignedBid := *bid
	unsignedBid.WalletIsSigner = false

	for name, ix := range map[string]solana.Instruction{
		"cancel listing": e.house.CancelInstruction(t, &unsignedListing),
		"cancel bid":     e.house.CancelInstruction(t, &unsignedBid),
		"withdraw":       e.house.WithdrawInstruction(t, buyer, 1_000, false, false),
		"sell":           e.house.SellInstruction(t, &unsignedListing),
		"execute sale": e.house.ExecuteSaleInstruction(t, &testenv.Sale{
			Buyer:        buyer,
			Seller:       testenv.Pub(e.seller),
			TokenAccount: e.tokenAccount,
			TokenMint:    e.mint,
			Price:        1_000,
			Size:         1,
		}),
	} {
		err := e.submit(t, attacker, e.house.Forward(t, ix))
		assert.ErrorIs(t, err, auctioneer_program.ErrMissingCallerSigner, name)
	}

	assert.Equal(t, before, e.env.Snapshot(t, watched...))
}

func TestForward_HousePowersRequireAuthority(t *testing.T) {
	t.Run("free listing", func(t *testing.T) {
		e := setupHouse(t, &testenv.HouseConfig{CanChangeSalePrice: true}, auctionhouse_program.AllAuthorityScopes())
		attacker := e.env.NewWallet(t, testenv.DefaultWalletBalance)

		free := e.listing(0)
		require.NoError(t, e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, free))))

		bid := &testenv.Order{
			Wallet:         testenv.Pub(attacker),
			TokenAccount:   e.tokenAccount,
			TokenMint:      e.mint,
			Price:          1,
			Size:           1,
			WalletIsSigner: true,
		}
		require.NoError(t, e.submit(t, attacker, e.house.Forward(t, e.house.BuyInstruction(t, bid))))

		sale := &testenv.Sale{
			Buyer:         testenv.Pub(attacker),
			Seller:        testenv.Pub(e.seller),
			TokenAccount:  e.tokenAccount,
			TokenMint:     e.mint,
			Price:         1,
			Size:          1,
			BuyerIsSigner: true,
		}
		receipt := testenv.AssociatedTokenAccount(t, testenv.Pub(attacker), e.mint)

		// Settling a free listing at the buyer's price is the authority's call
		err := e.submit(t, attacker, e.house.Forward(t, e.house.ExecuteSaleInstruction(t, sale)))
		assert.ErrorIs(t, err, auctionhouse_program.ErrSaleRequiresSigner)
		assert.EqualValues(t, 0, e.env.TokenBalance(t, receipt))
		assert.EqualValues(t, 1, e.env.TokenBalance(t, e.tokenAccount))
		assert.True(t, e.env.Exists(t, e.house.FreeSellerTradeState(t, free)))

		sale.AuthorityIsSigner = true
		_, err = e.env.Submit(t, attacker, []ed25519.PrivateKey{attacker, e.house.Authority}, e.house.Forward(t, e.house.ExecuteSaleInstruction(t, sale)))
		require.NoError(t, err)
		assert.EqualValues(t, 1, e.env.TokenBalance(t, receipt))
		assert.False(t, e.env.Exists(t, e.house.FreeSellerTradeState(t, free)))
	})

	t.Run("sign off", func(t *testing.T) {
		e := setupHouse(t, &testenv.HouseConfig{RequiresSignOff: true}, auctionhouse_program.AllAuthorityScopes())

		listing := e.listing(1_000)
		err := e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, listing)))
		assert.ErrorIs(t, err, auctionhouse_program.ErrRequiresSignOff)
		assert.False(t, e.env.Exists(t, e.house.SellerTradeState(t, listing)))

		listing.AuthorityIsSigner = true
		_, err = e.env.Submit(t, e.seller, []ed25519.PrivateKey{e.seller, e.house.Authority}, e.house.Forward(t, e.house.SellInstruction(t, listing)))
		require.NoError(t, err)
		assert.True(t, e.env.Exists(t, e.house.SellerTradeState(t, listing)))
	})

	t.Run("cancel", func(t *testing.T) {
		e := setup(t, auctionhouse_program.AllAuthorityScopes())

		listing := e.listing(1_000)
		require.NoError(t, e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, listing))))

		// The authority can still cancel through the auctioneer by co-signing
		byHouse := *listing
		byHouse.WalletIsSigner = false
		byHouse.AuthorityIsSigner = true
		require.NoError(t, e.submit(t, e.house.Authority, e.house.Forward(t, e.house.CancelInstruction(t, &byHouse))))
		assert.False(t, e.env.Exists(t, e.house.SellerTradeState(t, listing)))
	})
}

func TestForward_MissingScopeChangesNothing(t *testing.T) {
	for _, tc := range []struct {
		scope auctionhouse_program.AuthorityScope
		payer func(e *testEnv) ed25519.PrivateKey
		ix    func(t *testing.T, e *testEnv) solana.Instruction
	}{
		{
			scope: auctionhouse_program.AuthorityScopeDeposit,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.buyer },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.DepositInstruction(t, testenv.Pub(e.buyer), 500, false)
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopeWithdraw,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.buyer },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.WithdrawInstruction(t, testenv.Pub(e.buyer), 500, true, false)
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopeSell,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.seller },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.SellInstruction(t, e.listing(2_000))
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopeBuy,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.buyer },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.BuyInstruction(t, e.bid(2_000))
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopePublicBuy,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.buyer },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.BuyInstruction(t, e.publicBid(2_000))
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopeCancel,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.seller },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.CancelInstruction(t, e.listing(1_000))
			},
		},
		{
			scope: auctionhouse_program.AuthorityScopeExecuteSale,
			payer: func(e *testEnv) ed25519.PrivateKey { return e.buyer },
			ix: func(t *testing.T, e *testEnv) solana.Instruction {
				return e.house.ExecuteSaleInstruction(t, &testenv.Sale{
					Buyer:         testenv.Pub(e.buyer),
					Seller:        testenv.Pub(e.seller),
					TokenAccount:  e.tokenAccount,
					TokenMint:     e.mint,
					Price:         1_000,
					Size:          1,
					BuyerIsSigner: true,
				})
			},
		},
	} {
		t.Run(tc.scope.String(), func(t *testing.T) {
			e := setup(t, auctionhouse_program.AllAuthorityScopes())

			// An open listing, bid and escrow for every operation to act on
			require.NoError(t, e.submit(t, e.seller, e.house.Forward(t, e.house.SellInstruction(t, e.listing(1_000)))))
			require.NoError(t, e.submit(t, e.buyer, e.house.Forward(t, e.house.BuyInstruction(t, e.bid(1_000)))))

			err := e.submit(t, e.house.Authority, e.house.UpdateAuctioneerInstruction(t, auctionhouse_program.AllAuthorityScopes().Without(tc.scope)))
			require.NoError(t, err)

			escrow, _ := e.house.Escrow(t, testenv.Pub(e.buyer))
			watched := []ed25519.PublicKey{
				e.house.SellerTradeState(t, e.listing(1_000)),
				e.house.SellerTradeState(t, e.listing(2_000)),
				e.house.BuyerTradeState(t, e.bid(1_000)),
				e.house.BuyerTradeState(t, e.bid(2_000)),
				e.house.BuyerTradeState(t, e.publicBid(2_000)),
				escrow,
				e.tokenAccount,
				testenv.AssociatedTokenAccount(t, testenv.Pub(e.buyer), e.mint),
				e.house.FeeAccount,
				e.house.Treasury,
				testenv.Pub(e.seller),
				testenv.Pub(e.buyer),
			}
			before := e.env.Snapshot(t, watched...)

			err = e.submit(t, tc.payer(e), e.house.Forward(t, tc.ix(t, e)))
			assert.ErrorIs(t, err, auctionhouse_program.ErrMissingAuctioneerScope)
			assert.Equal(t, before, e.env.Snapshot(t, watched...))
		})
	}
}

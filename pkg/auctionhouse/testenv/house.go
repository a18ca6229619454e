package testenv

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/auction-house-server/pkg/solana"

	auctioneer_program "github.com/code-payments/auction-house-server/pkg/solana/auctioneer"
	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

type HouseConfig struct {
	// Authority defaults to a new funded wallet
	Authority ed25519.PrivateKey

	// TreasuryMint defaults to the native mint. SPL houses need the
	// authority to hold an associated token account for the mint.
	TreasuryMint ed25519.PublicKey

	SellerFeeBasisPoints uint16
	RequiresSignOff      bool
	CanChangeSalePrice   bool
}

// House is a created auction house and its derived accounts
type House struct {
	env *Env

	Authority    ed25519.PrivateKey
	TreasuryMint ed25519.PublicKey

	Address    ed25519.PublicKey
	FeeAccount ed25519.PublicKey
	Treasury   ed25519.PublicKey

	FeeWithdrawalDestination      ed25519.PublicKey
	TreasuryWithdrawalDestination ed25519.PublicKey

	bump, feePayerBump, treasuryBump uint8
}

// NewHouse derives the accounts of an auction house without creating it
func (e *Env) NewHouse(t *testing.T, cfg *HouseConfig) *House {
	authority := cfg.Authority
	if authority == nil {
		authority = e.NewWallet(t, DefaultWalletBalance)
	}
	treasuryMint := cfg.TreasuryMint
	if treasuryMint == nil {
		treasuryMint = auctionhouse_program.NATIVE_MINT
	}

	address, bump, err := auctionhouse_program.GetAuctionHouseAddress(&auctionhouse_program.GetAuctionHouseAddressArgs{
		Creator:      Pub(authority),
		TreasuryMint: treasuryMint,
	})
	require.NoError(t, err)
	feeAccount, feePayerBump, err := auctionhouse_program.GetAuctionHouseFeeAccountAddress(&auctionhouse_program.GetAuctionHouseFeeAccountAddressArgs{
		AuctionHouse: address,
	})
	require.NoError(t, err)
	treasury, treasuryBump, err := auctionhouse_program.GetAuctionHouseTreasuryAddress(&auctionhouse_program.GetAuctionHouseTreasuryAddressArgs{
		AuctionHouse: address,
	})
	require.NoError(t, err)

	h := &House{
		env:          e,
		Authority:    authority,
		TreasuryMint: treasuryMint,
		Address:      address,
		FeeAccount:   feeAccount,
		Treasury:     treasury,

		FeeWithdrawalDestination:      Pub(authority),
		TreasuryWithdrawalDestination: Pub(authority),

		bump:         bump,
		feePayerBump: feePayerBump,
		treasuryBump: treasuryBump,
	}
	if !h.IsNative() {
		h.TreasuryWithdrawalDestination = AssociatedTokenAccount(t, Pub(authority), treasuryMint)
	}
	return h
}

// CreateHouse creates an auction house, failing the test on error
func (e *Env) CreateHouse(t *testing.T, cfg *HouseConfig) *House {
	h := e.NewHouse(t, cfg)
	_, err := e.Submit(t, h.Authority, []ed25519.PrivateKey{h.Authority}, h.CreateInstruction(cfg))
	require.NoError(t, err)
	return h
}

func (h *House) IsNative() bool {
	return bytes.Equal(h.TreasuryMint, auctionhouse_program.NATIVE_MINT)
}

func (h *House) CreateInstruction(cfg *HouseConfig) solana.Instruction {
	return auctionhouse_program.NewCreateAuctionHouseInstruction(
		&auctionhouse_program.CreateAuctionHouseInstructionAccounts{
			TreasuryMint:                       h.TreasuryMint,
			Payer:                              Pub(h.Authority),
			Authority:                          Pub(h.Authority),
			FeeWithdrawalDestination:           h.FeeWithdrawalDestination,
			TreasuryWithdrawalDestination:      h.TreasuryWithdrawalDestination,
			TreasuryWithdrawalDestinationOwner: Pub(h.Authority),
			AuctionHouse:                       h.Address,
			AuctionHouseFeeAccount:             h.FeeAccount,
			AuctionHouseTreasury:               h.Treasury,
		},
		&auctionhouse_program.CreateAuctionHouseInstructionArgs{
			Bump:                 h.bump,
			FeePayerBump:         h.feePayerBump,
			TreasuryBump:         h.treasuryBump,
			SellerFeeBasisPoints: cfg.SellerFeeBasisPoints,
			RequiresSignOff:      cfg.RequiresSignOff,
			CanChangeSalePrice:   cfg.CanChangeSalePrice,
		},
	)
}

func (h *House) UpdateInstruction(args *auctionhouse_program.UpdateAuctionHouseInstructionArgs) solana.Instruction {
	return auctionhouse_program.NewUpdateAuctionHouseInstruction(
		&auctionhouse_program.UpdateAuctionHouseInstructionAccounts{
			TreasuryMint:                       h.TreasuryMint,
			Payer:                              Pub(h.Authority),
			Authority:                          Pub(h.Authority),
			NewAuthority:                       Pub(h.Authority),
			FeeWithdrawalDestination:           h.FeeWithdrawalDestination,
			TreasuryWithdrawalDestination:      h.TreasuryWithdrawalDestination,
			TreasuryWithdrawalDestinationOwner: Pub(h.Authority),
			AuctionHouse:                       h.Address,
		},
		args,
	)
}

func (h *House) WithdrawFromTreasuryInstruction(amount uint64) solana.Instruction {
	return auctionhouse_program.NewWithdrawFromTreasuryInstruction(
		&auctionhouse_program.WithdrawFromTreasuryInstructionAccounts{
			TreasuryMint:                  h.TreasuryMint,
			Authority:                     Pub(h.Authority),
			TreasuryWithdrawalDestination: h.TreasuryWithdrawalDestination,
			AuctionHouseTreasury:          h.Treasury,
			AuctionHouse:                  h.Address,
		},
		&auctionhouse_program.WithdrawFromTreasuryInstructionArgs{Amount: amount},
	)
}

func (h *House) WithdrawFromFeeInstruction(amount uint64) solana.Instruction {
	return auctionhouse_program.NewWithdrawFromFeeInstruction(
		&auctionhouse_program.WithdrawFromFeeInstructionAccounts{
			Authority:                Pub(h.Authority),
			FeeWithdrawalDestination: h.FeeWithdrawalDestination,
			AuctionHouseFeeAccount:   h.FeeAccount,
			AuctionHouse:             h.Address,
		},
		&auctionhouse_program.WithdrawFromFeeInstructionArgs{Amount: amount},
	)
}

// AuctioneerAuthority is the auctioneer program's signing address for the
// auction house
func (h *House) AuctioneerAuthority(t *testing.T) ed25519.PublicKey {
	address, _, err := auctioneer_program.GetAuctioneerAuthorityAddress(&auctioneer_program.GetAuctioneerAuthorityAddressArgs{
		AuctionHouse: h.Address,
	})
	require.NoError(t, err)
	return address
}

// AuctioneerRecord is the scope record of the auctioneer program's authority
func (h *House) AuctioneerRecord(t *testing.T) ed25519.PublicKey {
	address, _, err := auctionhouse_program.GetAuctioneerAddress(&auctionhouse_program.GetAuctioneerAddressArgs{
		AuctionHouse:        h.Address,
		AuctioneerAuthority: h.AuctioneerAuthority(t),
	})
	require.NoError(t, err)
	return address
}

func (h *House) DelegateAuctioneerInstruction(t *testing.T, scopes auctionhouse_program.AuthorityScopes) solana.Instruction {
	return auctionhouse_program.NewDelegateAuctioneerInstruction(h.scopeAccounts(t), &auctionhouse_program.DelegateAuctioneerInstructionArgs{
		Scopes: scopes,
	})
}

func (h *House) UpdateAuctioneerInstruction(t *testing.T, scopes auctionhouse_program.AuthorityScopes) solana.Instruction {
	return auctionhouse_program.NewUpdateAuctioneerInstruction(h.scopeAccounts(t), &auctionhouse_program.DelegateAuctioneerInstructionArgs{
		Scopes: scopes,
	})
}

func (h *House) scopeAccounts(t *testing.T) *auctionhouse_program.DelegateAuctioneerInstructionAccounts {
	return &auctionhouse_program.DelegateAuctioneerInstructionAccounts{
		AuctionHouse:        h.Address,
		Authority:           Pub(h.Authority),
		AuctioneerAuthority: h.AuctioneerAuthority(t),
		AhAuctioneerPda:     h.AuctioneerRecord(t),
	}
}

// Forward routes a direct instruction through the auctioneer program
func (h *House) Forward(t *testing.T, ix solana.Instruction) solana.Instruction {
	forwarded, err := auctioneer_program.NewForwardedInstruction(ix, &auctioneer_program.ForwardedAccounts{
		AuctioneerAuthority: h.AuctioneerAuthority(t),
		AhAuctioneerPda:     h.AuctioneerRecord(t),
	})
	require.NoError(t, err)
	return forwarded
}

// State loads the stored auction house account
func (h *House) State(t *testing.T) *auctionhouse_program.AuctionHouseAccount {
	record := h.env.Record(t, h.Address)
	require.NotNil(t, record)

	var state auctionhouse_program.AuctionHouseAccount
	require.NoError(t, state.Unmarshal(record.Data))
	return &state
}

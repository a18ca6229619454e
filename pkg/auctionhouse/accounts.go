package auctionhouse

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"
	"github.com/code-payments/auction-house-server/pkg/solana/system"
	"github.com/code-payments/auction-house-server/pkg/solana/token"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// auctionHouse is a loaded, address verified auction house account
type auctionHouse struct {
	key   ed25519.PublicKey
	info  *runtime.AccountInfo
	state *auctionhouse_program.AuctionHouseAccount
}

func loadAuctionHouse(info *runtime.AccountInfo) (*auctionHouse, error) {
	if info.IsEmpty() {
		return nil, errors.Wrapf(auctionhouse_program.ErrUninitializedAccount, "auction house %s", info.String())
	}
	if !info.IsOwnedBy(auctionhouse_program.PROGRAM_ID) {
		return nil, errors.Wrapf(auctionhouse_program.ErrIncorrectOwner, "auction house %s", info.String())
	}

	var state auctionhouse_program.AuctionHouseAccount
	if err := state.Unmarshal(info.Data()); err != nil {
		return nil, errors.Wrapf(auctionhouse_program.ErrUninitializedAccount, "auction house %s", info.String())
	}

	seeds := auctionhouse_program.AuctionHouseAddressSeeds(state.Creator, state.TreasuryMint)
	if err := auctionhouse_program.VerifyAddress(info.Key, state.Bump, seeds...); err != nil {
		return nil, err
	}

	return &auctionHouse{
		key:   info.Key,
		info:  info,
		state: &state,
	}, nil
}

func (h *auctionHouse) save() error {
	return h.info.SetData(h.state.Marshal())
}

func (h *auctionHouse) checkAuthority(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, h.state.Authority) {
		return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "authority %s", info.String())
	}
	return nil
}

func (h *auctionHouse) checkFeeAccount(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, h.state.AuctionHouseFeeAccount) {
		return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "fee account %s", info.String())
	}
	return nil
}

func (h *auctionHouse) checkTreasury(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, h.state.AuctionHouseTreasury) {
		return errors.Wrapf(auctionhouse_program.ErrPublicKeyMismatch, "treasury %s", info.String())
	}
	return nil
}

func (h *auctionHouse) checkTreasuryMint(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, h.state.TreasuryMint) {
		return errors.Wrapf(auctionhouse_program.ErrInvalidTreasuryMint, "treasury mint %s", info.String())
	}
	return nil
}

func (h *auctionHouse) feeAccountSeeds() [][]byte {
	return auctionhouse_program.WithBump(auctionhouse_program.FeeAccountAddressSeeds(h.key), h.state.FeePayerBump)
}

func (h *auctionHouse) treasurySeeds() [][]byte {
	return auctionhouse_program.WithBump(auctionhouse_program.TreasuryAddressSeeds(h.key), h.state.TreasuryBump)
}

// checkEscrow verifies escrow is the canonical escrow of wallet, returning its
// signer seeds
func (h *auctionHouse) checkEscrow(escrow, wallet *runtime.AccountInfo, bump uint8) ([][]byte, error) {
	seeds := auctionhouse_program.EscrowAddressSeeds(h.key, wallet.Key)
	if err := auctionhouse_program.VerifyAddress(escrow.Key, bump, seeds...); err != nil {
		return nil, err
	}
	return auctionhouse_program.WithBump(seeds, bump), nil
}

// feePayer is the account funding rent for accounts an instruction creates,
// and receiving the lamports of trade states it closes
type feePayer struct {
	info *runtime.AccountInfo

	// seeds are set when the fee account pays, and must sign as a PDA
	seeds [][]byte
}

// getFeePayer picks the auction house fee account when the authority or
// auctioneer authorized the instruction, and otherwise the first signing wallet
func (h *auctionHouse) getFeePayer(auth *AuthorizationContext, feeAccount *runtime.AccountInfo, wallets ...*runtime.AccountInfo) (*feePayer, error) {
	if auth.FeeAccountPays() {
		return &feePayer{info: feeAccount, seeds: h.feeAccountSeeds()}, nil
	}

	for _, wallet := range wallets {
		if wallet.IsSigner {
			return &feePayer{info: wallet}, nil
		}
	}
	return nil, auctionhouse_program.ErrNoPayerPresent
}

func loadTokenAccount(info *runtime.AccountInfo) (*token.Account, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(auctionhouse_program.ErrIncorrectOwner, "token account %s", info.String())
	}

	var state token.Account
	if !state.Unmarshal(info.Data()) || state.State == token.AccountStateUninitialized {
		return nil, errors.Wrapf(auctionhouse_program.ErrUninitializedAccount, "token account %s", info.String())
	}
	return &state, nil
}

func loadMint(info *runtime.AccountInfo) (*token.Mint, error) {
	if !info.IsOwnedBy(token.ProgramKey) {
		return nil, errors.Wrapf(auctionhouse_program.ErrIncorrectOwner, "mint %s", info.String())
	}

	var state token.Mint
	if !state.Unmarshal(info.Data()) || !state.IsInitialized {
		return nil, errors.Wrapf(auctionhouse_program.ErrUninitializedAccount, "mint %s", info.String())
	}
	return &state, nil
}

// loadOwnedTokenAccount loads a token account, requiring it be owned by owner
// and hold mint when one is provided
func loadOwnedTokenAccount(info *runtime.AccountInfo, owner, mint ed25519.PublicKey) (*token.Account, error) {
	state, err := loadTokenAccount(info)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(state.Owner, owner) {
		return nil, errors.Wrapf(auctionhouse_program.ErrInvalidAccountOwner, "token account %s", info.String())
	}
	if mint != nil && !bytes.Equal(state.Mint, mint) {
		return nil, errors.Wrapf(auctionhouse_program.ErrMintMismatch, "token account %s", info.String())
	}
	return state, nil
}

// createEscrowTokenAccount creates the SPL escrow of a wallet as a token
// account at the escrow PDA, with the auction house as its owner
func createEscrowTokenAccount(inv *runtime.Invocation, house *auctionHouse, payer *feePayer, escrow, treasuryMint *runtime.AccountInfo, escrowSeeds [][]byte) error {
	if escrow.IsOwnedBy(token.ProgramKey) {
		_, err := loadOwnedTokenAccount(escrow, house.key, house.state.TreasuryMint)
		return err
	}

	err := runtime.CreateProgramAccount(inv, &runtime.CreateProgramAccountArgs{
		Funder:       payer.info,
		Account:      escrow,
		Owner:        token.ProgramKey,
		Size:         token.AccountSize,
		FunderSeeds:  payer.seeds,
		AccountSeeds: escrowSeeds,
	})
	if err != nil {
		return err
	}

	return inv.Invoke(token.InitializeAccount(escrow.Key, treasuryMint.Key, house.key))
}

// createAssociatedTokenAccount idempotently creates the associated token
// account of wallet for mint at address
func createAssociatedTokenAccount(inv *runtime.Invocation, payer *feePayer, address, wallet, mint *runtime.AccountInfo) error {
	ix, expected, err := token.CreateAssociatedTokenAccount(payer.info.Key, wallet.Key, mint.Key, true)
	if err != nil {
		return err
	}
	if !bytes.Equal(expected, address.Key) {
		return errors.Wrapf(auctionhouse_program.ErrDerivedKeyInvalid, "associated token account %s", address.String())
	}

	if address.IsOwnedBy(token.ProgramKey) {
		_, err := loadOwnedTokenAccount(address, wallet.Key, mint.Key)
		return err
	}

	var signers [][][]byte
	if payer.seeds != nil {
		signers = append(signers, payer.seeds)
	}
	return inv.InvokeSigned(ix, signers...)
}

// isSystemAccount reports whether info can hold lamports for native payments
func isSystemAccount(info *runtime.AccountInfo) bool {
	return info.IsOwnedBy(system.ProgramKey) && len(info.Data()) == 0
}

func checkedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, auctionhouse_program.ErrNumericalOverflow
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, auctionhouse_program.ErrNumericalOverflow
	}
	return diff, nil
}

func checkedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, auctionhouse_program.ErrNumericalOverflow
	}
	return lo, nil
}

// computeFee is floor(amount * basisPoints / 10000), computed without
// intermediate overflow
func computeFee(amount uint64, basisPoints uint16) (uint64, error) {
	if basisPoints > auctionhouse_program.MaxBasisPoints {
		return 0, auctionhouse_program.ErrInvalidBasisPoints
	}

	hi, lo := bits.Mul64(amount, uint64(basisPoints))
	fee, _ := bits.Div64(hi, lo, auctionhouse_program.MaxBasisPoints)
	return fee, nil
}

// ComputeFee returns the marketplace fee and seller proceeds of a sale at
// price
func ComputeFee(price uint64, basisPoints uint16) (fee, proceeds uint64, err error) {
	fee, err = computeFee(price, basisPoints)
	if err != nil {
		return 0, 0, err
	}
	return fee, price - fee, nil
}

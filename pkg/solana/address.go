package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrNoValidBump indicates that no bump seed in [0, 255] produced an
	// off-curve address for the provided seeds
	ErrNoValidBump = errors.New("unable to find a viable program address bump seed")

	// ErrBumpSeedNotCanonical indicates a caller supplied bump seed or address
	// that doesn't match the canonical derivation
	ErrBumpSeedNotCanonical = errors.New("bump seed is not canonical")
)

const pdaMarker = "ProgramDerivedAddress"

// digestSeeds is swapped out by tests that need to force on-curve results.
var digestSeeds = func(program ed25519.PublicKey, seeds [][]byte) [sha256.Size]byte {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))

	var digest [sha256.Size]byte
	h.Sum(digest[:0])
	return digest
}

// CreateProgramAddress derives the program address for the seeds, following
// the Solana SDK. Program addresses must not lie on the ed25519 curve, so they
// have no private key. ErrInvalidPublicKey is returned when the seeds hash to a
// point on the curve.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return nil, ErrTooManySeeds
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
	}

	digest := digestSeeds(program, seeds)
	if isOnCurve(digest) {
		return nil, ErrInvalidPublicKey
	}
	return digest[:], nil
}

// isOnCurve reports whether key decompresses to an Edwards point. The point
// type is internal to golang.org/x/crypto, hence the jdgcs fork.
func isOnCurve(key [32]byte) bool {
	var point edwards25519.ExtendedGroupElement
	return point.FromBytes(&key)
}

// FindProgramAddressAndBump mirrors the implementation of the Solana SDK's
// FindProgramAddress. It returns the address and the canonical bump seed, which
// is the first bump, searching down from 255, that yields an off-curve address.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	// Appending to a copy leaves the caller's backing array alone
	withBump := append(make([][]byte, 0, len(seeds)+1), seeds...)
	withBump = append(withBump, []byte{0})

	for bump := math.MaxUint8; bump > 0; bump-- {
		withBump[len(seeds)][0] = uint8(bump)

		pub, err := CreateProgramAddress(program, withBump...)
		switch err {
		case nil:
			return pub, uint8(bump), nil
		case ErrInvalidPublicKey:
		default:
			return nil, 0, err
		}
	}

	return nil, 0, ErrNoValidBump
}

// FindProgramAddress is FindProgramAddressAndBump without the bump
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	pub, _, err := FindProgramAddressAndBump(program, seeds...)
	return pub, err
}

// VerifyProgramAddress checks that address is the canonical program address for
// the seeds, and that bump is the canonical bump used to derive it. Any other
// bump that happens to produce a valid off-curve address is rejected.
func VerifyProgramAddress(program, address ed25519.PublicKey, bump uint8, seeds ...[]byte) error {
	canonical, canonicalBump, err := FindProgramAddressAndBump(program, seeds...)
	if err != nil {
		return err
	}

	if canonicalBump != bump || !bytes.Equal(canonical, address) {
		return ErrBumpSeedNotCanonical
	}
	return nil
}

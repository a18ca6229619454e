package auctionhouse

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/code-payments/auction-house-server/pkg/cache"
	"github.com/code-payments/auction-house-server/pkg/solana"
)

var (
	AuctionHousePrefix = []byte("auction_house")
	TradeStatePrefix   = []byte("trade_state")
	EscrowPrefix       = []byte("auction_house_escrow")
	AuctioneerPrefix   = []byte("auctioneer")
	FeePayerPrefix     = []byte("fee_payer")
	TreasuryPrefix     = []byte("treasury")
	SignerPrefix       = []byte("signer")
	MetadataPrefix     = []byte("metadata")
)

type GetAuctionHouseAddressArgs struct {
	Creator      ed25519.PublicKey
	TreasuryMint ed25519.PublicKey
}

func GetAuctionHouseAddress(args *GetAuctionHouseAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		AuctionHouseAddressSeeds(args.Creator, args.TreasuryMint)...,
	)
}

func AuctionHouseAddressSeeds(creator, treasuryMint ed25519.PublicKey) [][]byte {
	return [][]byte{AuctionHousePrefix, creator, treasuryMint}
}

type GetAuctionHouseFeeAccountAddressArgs struct {
	AuctionHouse ed25519.PublicKey
}

func GetAuctionHouseFeeAccountAddress(args *GetAuctionHouseFeeAccountAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		FeeAccountAddressSeeds(args.AuctionHouse)...,
	)
}

func FeeAccountAddressSeeds(auctionHouse ed25519.PublicKey) [][]byte {
	return [][]byte{AuctionHousePrefix, auctionHouse, FeePayerPrefix}
}

type GetAuctionHouseTreasuryAddressArgs struct {
	AuctionHouse ed25519.PublicKey
}

func GetAuctionHouseTreasuryAddress(args *GetAuctionHouseTreasuryAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		TreasuryAddressSeeds(args.AuctionHouse)...,
	)
}

func TreasuryAddressSeeds(auctionHouse ed25519.PublicKey) [][]byte {
	return [][]byte{AuctionHousePrefix, auctionHouse, TreasuryPrefix}
}

type GetEscrowPaymentAddressArgs struct {
	AuctionHouse ed25519.PublicKey
	Wallet       ed25519.PublicKey
}

func GetEscrowPaymentAddress(args *GetEscrowPaymentAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		EscrowAddressSeeds(args.AuctionHouse, args.Wallet)...,
	)
}

func EscrowAddressSeeds(auctionHouse, wallet ed25519.PublicKey) [][]byte {
	return [][]byte{EscrowPrefix, auctionHouse, wallet}
}

type GetAuctioneerAddressArgs struct {
	AuctionHouse        ed25519.PublicKey
	AuctioneerAuthority ed25519.PublicKey
}

func GetAuctioneerAddress(args *GetAuctioneerAddressArgs) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		AuctioneerAddressSeeds(args.AuctionHouse, args.AuctioneerAuthority)...,
	)
}

func AuctioneerAddressSeeds(auctionHouse, auctioneerAuthority ed25519.PublicKey) [][]byte {
	return [][]byte{AuctioneerPrefix, auctionHouse, auctioneerAuthority}
}

func GetProgramAsSignerAddress() (ed25519.PublicKey, uint8, error) {
	return findAddress(
		ProgramAsSignerAddressSeeds()...,
	)
}

func ProgramAsSignerAddressSeeds() [][]byte {
	return [][]byte{AuctionHousePrefix, SignerPrefix}
}

type GetMetadataAddressArgs struct {
	Mint ed25519.PublicKey
}

func GetMetadataAddress(args *GetMetadataAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		METADATA_PROGRAM_ID,
		MetadataPrefix,
		METADATA_PROGRAM_ID,
		args.Mint,
	)
}

type TradeStateRole uint8

const (
	TradeStateRoleSeller TradeStateRole = iota
	TradeStateRoleFreeSeller
	TradeStateRolePrivateBuyer
	TradeStateRolePublicBuyer
)

func (r TradeStateRole) String() string {
	switch r {
	case TradeStateRoleSeller:
		return "seller"
	case TradeStateRoleFreeSeller:
		return "free_seller"
	case TradeStateRolePrivateBuyer:
		return "private_buyer"
	case TradeStateRolePublicBuyer:
		return "public_buyer"
	}
	return "unknown"
}

// TradeStateKey is the logical identity of an order.
//
// Every seed component has a fixed width (32 byte keys, 8 byte little endian
// integers), so two keys produce the same seed bytes only if every component
// is equal. The role is not a seed. Sellers and private buyers differ by
// wallet since a wallet cannot bid on its own token account, free sellers
// are pinned to price 0 and public buyers replace the token account with
// PublicBidSentinel.
type TradeStateKey struct {
	Role         TradeStateRole
	Wallet       ed25519.PublicKey
	AuctionHouse ed25519.PublicKey
	TokenAccount ed25519.PublicKey
	TreasuryMint ed25519.PublicKey
	TokenMint    ed25519.PublicKey
	Price        uint64
	Size         uint64
}

func (k *TradeStateKey) Seeds() [][]byte {
	tokenAccount := k.TokenAccount
	if k.Role == TradeStateRolePublicBuyer {
		tokenAccount = PublicBidSentinel
	}

	price := k.Price
	if k.Role == TradeStateRoleFreeSeller {
		price = 0
	}

	return [][]byte{
		TradeStatePrefix,
		k.Wallet,
		k.AuctionHouse,
		tokenAccount,
		k.TreasuryMint,
		k.TokenMint,
		uint64LE(price),
		uint64LE(k.Size),
	}
}

func (k *TradeStateKey) String() string {
	return fmt.Sprintf(
		"TradeStateKey{role=%s,wallet=%s,auction_house=%s,token_account=%s,treasury_mint=%s,token_mint=%s,price=%d,size=%d}",
		k.Role,
		base58.Encode(k.Wallet),
		base58.Encode(k.AuctionHouse),
		base58.Encode(k.TokenAccount),
		base58.Encode(k.TreasuryMint),
		base58.Encode(k.TokenMint),
		k.Price,
		k.Size,
	)
}

func GetTradeStateAddress(key *TradeStateKey) (ed25519.PublicKey, uint8, error) {
	return findAddress(
		key.Seeds()...,
	)
}

// VerifyTradeStateAddress fails with ErrBumpSeedNotInHashMap unless address
// and bump are the canonical derivation of key
func VerifyTradeStateAddress(key *TradeStateKey, address ed25519.PublicKey, bump uint8) error {
	return verify(address, bump, key.Seeds()...)
}

// VerifyAddress fails with ErrBumpSeedNotInHashMap unless address and bump are
// the canonical derivation of the seeds under the auction house program
func VerifyAddress(address ed25519.PublicKey, bump uint8, seeds ...[]byte) error {
	return verify(address, bump, seeds...)
}

func verify(address ed25519.PublicKey, bump uint8, seeds ...[]byte) error {
	canonical, canonicalBump, err := findAddress(seeds...)
	if err != nil {
		return err
	}
	if canonicalBump != bump || !bytes.Equal(canonical, address) {
		return ErrBumpSeedNotInHashMap
	}
	return nil
}

type derivation struct {
	address ed25519.PublicKey
	bump    uint8
}

// derivations memoizes canonical bump searches, which are repeated for every
// account an instruction touches
var derivations = cache.New[string, derivation](derivationCacheSize)

const derivationCacheSize = 100_000

func findAddress(seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	key, cacheable := derivationKey(seeds)
	if cacheable {
		if cached, ok := derivations.Retrieve(key); ok {
			return append(ed25519.PublicKey(nil), cached.address...), cached.bump, nil
		}
	}

	address, bump, err := solana.FindProgramAddressAndBump(PROGRAM_ID, seeds...)
	if err != nil {
		return nil, 0, err
	}

	if cacheable {
		// A concurrent miss may have inserted the same derivation already
		_ = derivations.Insert(key, derivation{address: append(ed25519.PublicKey(nil), address...), bump: bump}, 1)
	}
	return address, bump, nil
}

// derivationKey length prefixes each seed so distinct seed lists never share
// a key. Seed lists that can't derive an address aren't cached.
func derivationKey(seeds [][]byte) (string, bool) {
	if len(seeds) >= solana.MaxSeeds {
		return "", false
	}

	var b strings.Builder
	for _, seed := range seeds {
		if len(seed) > solana.MaxSeedLength {
			return "", false
		}
		b.WriteByte(byte(len(seed)))
		b.Write(seed)
	}
	return b.String(), true
}

// WithBump appends the bump seed, producing the signer seeds for a program
// address
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	withBump[len(seeds)] = []byte{bump}
	return withBump
}

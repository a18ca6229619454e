package auctioneer

import (
	"crypto/ed25519"

	"github.com/code-payments/auction-house-server/pkg/solana"
)

var (
	AuctioneerPrefix = []byte("auctioneer")
)

type GetAuctioneerAuthorityAddressArgs struct {
	AuctionHouse ed25519.PublicKey
}

// GetAuctioneerAuthorityAddress returns the PDA the auctioneer program signs
// with when it forwards instructions for an auction house. The auction house
// authority delegates scopes to this address.
func GetAuctioneerAuthorityAddress(args *GetAuctioneerAuthorityAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		AuctioneerAuthoritySeeds(args.AuctionHouse)...,
	)
}

func AuctioneerAuthoritySeeds(auctionHouse ed25519.PublicKey) [][]byte {
	return [][]byte{AuctioneerPrefix, auctionHouse}
}

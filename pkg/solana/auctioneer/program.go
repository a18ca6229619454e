package auctioneer

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidAuthority       = errors.New("auctioneer authority is not the auction house's authority address")
	ErrMissingCallerSigner    = errors.New("forwarded instruction is not signed by its wallet or the auction house authority")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("neer8g6yJq2mQM6KbnViEDAD4gr3gRZyMMf4F2p3MEh")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

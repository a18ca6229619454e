package auctionhouse

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/auction-house-server/pkg/runtime"

	auctionhouse_program "github.com/code-payments/auction-house-server/pkg/solana/auctionhouse"
)

// MetadataValidator checks a token is decorated by the expected metadata
// account. The metadata program itself is external.
type MetadataValidator interface {
	ValidateMetadata(mint ed25519.PublicKey, metadata *runtime.AccountInfo) error
}

type canonicalMetadataValidator struct{}

// NewCanonicalMetadataValidator returns a MetadataValidator that requires the
// metadata account be the canonical metadata address of the mint
func NewCanonicalMetadataValidator() MetadataValidator {
	return canonicalMetadataValidator{}
}

func (canonicalMetadataValidator) ValidateMetadata(mint ed25519.PublicKey, metadata *runtime.AccountInfo) error {
	expected, _, err := auctionhouse_program.GetMetadataAddress(&auctionhouse_program.GetMetadataAddressArgs{
		Mint: mint,
	})
	if err != nil {
		return err
	}

	if !bytes.Equal(expected, metadata.Key) {
		return errors.Wrapf(auctionhouse_program.ErrMetadataDoesntExist, "metadata %s", metadata.String())
	}
	return nil
}

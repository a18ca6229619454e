package auctionhouse

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	AuctioneerAccountSize = (8 + // discriminator
		32 + // auctioneer_authority
		32 + // auction_house
		1 + // bump
		1) // scopes
)

var AuctioneerAccountDiscriminator = []byte{byte(AccountTypeAuctioneer), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

type AuctioneerAccount struct {
	AuctioneerAuthority ed25519.PublicKey
	AuctionHouse        ed25519.PublicKey
	Bump                uint8
	Scopes              AuthorityScopes
}

func (obj *AuctioneerAccount) Marshal() []byte {
	data := make([]byte, AuctioneerAccountSize)

	var offset int
	putDiscriminator(data, AuctioneerAccountDiscriminator, &offset)
	putKey(data, obj.AuctioneerAuthority, &offset)
	putKey(data, obj.AuctionHouse, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint8(data, uint8(obj.Scopes), &offset)

	return data
}

func (obj *AuctioneerAccount) Unmarshal(data []byte) error {
	if len(data) != AuctioneerAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, AuctioneerAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	var scopes uint8
	getKey(data, &obj.AuctioneerAuthority, &offset)
	getKey(data, &obj.AuctionHouse, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint8(data, &scopes, &offset)
	obj.Scopes = AuthorityScopes(scopes)

	return obj.Scopes.Validate()
}

func (obj *AuctioneerAccount) String() string {
	return fmt.Sprintf(
		"Auctioneer{auctioneer_authority=%s,auction_house=%s,bump=%d,scopes=%s}",
		base58.Encode(obj.AuctioneerAuthority),
		base58.Encode(obj.AuctionHouse),
		obj.Bump,
		obj.Scopes,
	)
}

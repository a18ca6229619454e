package auctionhouse

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	AuctionHouseAccountSize = (8 + // discriminator
		32 + // auction_house_fee_account
		32 + // auction_house_treasury
		32 + // treasury_withdrawal_destination
		32 + // fee_withdrawal_destination
		32 + // treasury_mint
		32 + // authority
		32 + // creator
		1 + // bump
		1 + // treasury_bump
		1 + // fee_payer_bump
		2 + // seller_fee_basis_points
		1 + // requires_sign_off
		1 + // can_change_sale_price
		1 + // has_auctioneer
		32 + // auctioneer
		1) // auctioneer_pda_bump
)

var AuctionHouseAccountDiscriminator = []byte{byte(AccountTypeAuctionHouse), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

type AuctionHouseAccount struct {
	AuctionHouseFeeAccount        ed25519.PublicKey
	AuctionHouseTreasury          ed25519.PublicKey
	TreasuryWithdrawalDestination ed25519.PublicKey
	FeeWithdrawalDestination      ed25519.PublicKey
	TreasuryMint                  ed25519.PublicKey
	Authority                     ed25519.PublicKey
	Creator                       ed25519.PublicKey
	Bump                          uint8
	TreasuryBump                  uint8
	FeePayerBump                  uint8
	SellerFeeBasisPoints          uint16
	RequiresSignOff               bool
	CanChangeSalePrice            bool
	HasAuctioneer                 bool
	Auctioneer                    ed25519.PublicKey
	AuctioneerPdaBump             uint8
}

func (obj *AuctionHouseAccount) Marshal() []byte {
	data := make([]byte, AuctionHouseAccountSize)

	auctioneer := obj.Auctioneer
	if len(auctioneer) == 0 {
		auctioneer = make(ed25519.PublicKey, ed25519.PublicKeySize)
	}

	var offset int
	putDiscriminator(data, AuctionHouseAccountDiscriminator, &offset)
	putKey(data, obj.AuctionHouseFeeAccount, &offset)
	putKey(data, obj.AuctionHouseTreasury, &offset)
	putKey(data, obj.TreasuryWithdrawalDestination, &offset)
	putKey(data, obj.FeeWithdrawalDestination, &offset)
	putKey(data, obj.TreasuryMint, &offset)
	putKey(data, obj.Authority, &offset)
	putKey(data, obj.Creator, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint8(data, obj.TreasuryBump, &offset)
	putUint8(data, obj.FeePayerBump, &offset)
	putUint16(data, obj.SellerFeeBasisPoints, &offset)
	putBool(data, obj.RequiresSignOff, &offset)
	putBool(data, obj.CanChangeSalePrice, &offset)
	putBool(data, obj.HasAuctioneer, &offset)
	putKey(data, auctioneer, &offset)
	putUint8(data, obj.AuctioneerPdaBump, &offset)

	return data
}

func (obj *AuctionHouseAccount) Unmarshal(data []byte) error {
	if len(data) != AuctionHouseAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, AuctionHouseAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.AuctionHouseFeeAccount, &offset)
	getKey(data, &obj.AuctionHouseTreasury, &offset)
	getKey(data, &obj.TreasuryWithdrawalDestination, &offset)
	getKey(data, &obj.FeeWithdrawalDestination, &offset)
	getKey(data, &obj.TreasuryMint, &offset)
	getKey(data, &obj.Authority, &offset)
	getKey(data, &obj.Creator, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint8(data, &obj.TreasuryBump, &offset)
	getUint8(data, &obj.FeePayerBump, &offset)
	getUint16(data, &obj.SellerFeeBasisPoints, &offset)
	getBool(data, &obj.RequiresSignOff, &offset)
	getBool(data, &obj.CanChangeSalePrice, &offset)
	getBool(data, &obj.HasAuctioneer, &offset)
	getKey(data, &obj.Auctioneer, &offset)
	getUint8(data, &obj.AuctioneerPdaBump, &offset)

	return nil
}

// IsNative reports whether the auction house settles in lamports
func (obj *AuctionHouseAccount) IsNative() bool {
	return bytes.Equal(obj.TreasuryMint, NATIVE_MINT)
}

// SignerSeeds are the seeds the auction house PDA signs with
func (obj *AuctionHouseAccount) SignerSeeds() [][]byte {
	return WithBump(AuctionHouseAddressSeeds(obj.Creator, obj.TreasuryMint), obj.Bump)
}

func (obj *AuctionHouseAccount) String() string {
	return fmt.Sprintf(
		"AuctionHouse{fee_account=%s,treasury=%s,treasury_withdrawal_destination=%s,fee_withdrawal_destination=%s,treasury_mint=%s,authority=%s,creator=%s,bump=%d,treasury_bump=%d,fee_payer_bump=%d,seller_fee_basis_points=%d,requires_sign_off=%v,can_change_sale_price=%v,has_auctioneer=%v,auctioneer=%s,auctioneer_pda_bump=%d}",
		base58.Encode(obj.AuctionHouseFeeAccount),
		base58.Encode(obj.AuctionHouseTreasury),
		base58.Encode(obj.TreasuryWithdrawalDestination),
		base58.Encode(obj.FeeWithdrawalDestination),
		base58.Encode(obj.TreasuryMint),
		base58.Encode(obj.Authority),
		base58.Encode(obj.Creator),
		obj.Bump,
		obj.TreasuryBump,
		obj.FeePayerBump,
		obj.SellerFeeBasisPoints,
		obj.RequiresSignOff,
		obj.CanChangeSalePrice,
		obj.HasAuctioneer,
		base58.Encode(obj.Auctioneer),
		obj.AuctioneerPdaBump,
	)
}

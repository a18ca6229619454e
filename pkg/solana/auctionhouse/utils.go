package auctionhouse

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58"
)

func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, 8)
	copy(*dst, src[*offset:])
	*offset += 8
}

func putDiscriminator(dst []byte, v []byte, offset *int) {
	copy(dst[*offset:], v)
	*offset += 8
}

func putKey(dst []byte, v ed25519.PublicKey, offset *int) {
	copy(dst[*offset:], v)
	*offset += ed25519.PublicKeySize
}
func getKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

func putBool(dst []byte, v bool, offset *int) {
	if v {
		dst[*offset] = 1
	} else {
		dst[*offset] = 0
	}
	*offset += 1
}
func getBool(src []byte, dst *bool, offset *int) {
	*dst = src[*offset] == 1
	*offset += 1
}

func putUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func getUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func putUint16(dst []byte, v uint16, offset *int) {
	binary.LittleEndian.PutUint16(dst[*offset:], v)
	*offset += 2
}
func getUint16(src []byte, dst *uint16, offset *int) {
	*dst = binary.LittleEndian.Uint16(src[*offset:])
	*offset += 2
}

func putUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}
func getUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

// Optional values are encoded as a 1 byte presence flag followed by the
// fixed size value, so instruction data has a fixed size.
func putOptionalUint16(dst []byte, v *uint16, offset *int) {
	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint16(dst[*offset+1:], *v)
	}
	*offset += 1 + 2
}
func getOptionalUint16(src []byte, dst **uint16, offset *int) {
	if src[*offset] == 1 {
		v := binary.LittleEndian.Uint16(src[*offset+1:])
		*dst = &v
	}
	*offset += 1 + 2
}

func putOptionalBool(dst []byte, v *bool, offset *int) {
	if v != nil {
		dst[*offset] = 1
		if *v {
			dst[*offset+1] = 1
		}
	}
	*offset += 1 + 1
}
func getOptionalBool(src []byte, dst **bool, offset *int) {
	if src[*offset] == 1 {
		v := src[*offset+1] == 1
		*dst = &v
	}
	*offset += 1 + 1
}

func putOptionalUint64(dst []byte, v *uint64, offset *int) {
	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint64(dst[*offset+1:], *v)
	}
	*offset += 1 + 8
}
func getOptionalUint64(src []byte, dst **uint64, offset *int) {
	if src[*offset] == 1 {
		v := binary.LittleEndian.Uint64(src[*offset+1:])
		*dst = &v
	}
	*offset += 1 + 8
}

func uint64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

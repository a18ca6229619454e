package auctionhouse

import (
	"fmt"
)

const (
	TradeStateAccountSize = (1 + // bump
		8) // remaining
)

// TradeStateAccount is an open order. An absent account, or one with empty
// data, is no order at all.
type TradeStateAccount struct {
	Bump      uint8
	Remaining uint64
}

func (obj *TradeStateAccount) Marshal() []byte {
	data := make([]byte, TradeStateAccountSize)

	var offset int
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.Remaining, &offset)

	return data
}

func (obj *TradeStateAccount) Unmarshal(data []byte) error {
	if len(data) != TradeStateAccountSize {
		return ErrInvalidAccountData
	}

	var offset int
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.Remaining, &offset)

	return nil
}

func (obj *TradeStateAccount) String() string {
	return fmt.Sprintf(
		"TradeState{bump=%d,remaining=%d}",
		obj.Bump,
		obj.Remaining,
	)
}

// IsTradeStateOpen reports whether account data holds an open order
func IsTradeStateOpen(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return true
		}
	}
	return false
}

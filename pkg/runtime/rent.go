package runtime

import (
	"time"
)

const (
	// Bytes of bookkeeping charged to every account, regardless of its data
	//
	// Reference: https://github.com/solana-labs/solana/blob/v1.14.17/sdk/program/src/rent.rs#L38
	AccountStorageOverhead = 128

	DefaultLamportsPerByteYear = 3480
	DefaultExemptionThreshold  = 2
)

// RentSchedule determines the balance an account must hold to persist
type RentSchedule struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

// DefaultRentSchedule is the mainnet rent schedule
var DefaultRentSchedule = RentSchedule{
	LamportsPerByteYear: DefaultLamportsPerByteYear,
	ExemptionThreshold:  DefaultExemptionThreshold,
}

// MinimumBalance returns the lamports an account with dataLen bytes of data
// must hold to be rent exempt
func (r RentSchedule) MinimumBalance(dataLen int) uint64 {
	return (AccountStorageOverhead + uint64(dataLen)) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// IsExempt reports whether balance covers an account with dataLen bytes of data
func (r RentSchedule) IsExempt(balance uint64, dataLen int) bool {
	return balance >= r.MinimumBalance(dataLen)
}

// Clock provides the wall clock time of a transaction
type Clock interface {
	Now() time.Time
}

// SystemClock reads the local time
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns the same time
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

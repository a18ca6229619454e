package amount

import (
	"math"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the precision of lamport denominated amounts
	NativeDecimals = 9

	LamportsPerSol = 1_000_000_000

	// MaxDecimals bounds mint precision so every uint64 amount has an exact
	// decimal representation
	MaxDecimals = 19
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrAmountNotRepresented = errors.New("amount cannot be represented in base units")
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// FromBaseUnits converts an amount of base units to its decimal value for a
// mint with the provided precision
func FromBaseUnits(value uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(value), -int32(decimals))
}

// StrFromBaseUnits converts an amount of base units to a string padded to the
// mint's full precision
func StrFromBaseUnits(value uint64, decimals uint8) string {
	return FromBaseUnits(value, decimals).StringFixed(int32(decimals))
}

// ToBaseUnits converts a decimal value to base units.
//
// An error is returned if the value is negative, has more precision than the
// mint supports, or overflows a uint64.
func ToBaseUnits(value decimal.Decimal, decimals uint8) (uint64, error) {
	if decimals > MaxDecimals {
		return 0, errors.Errorf("decimals cannot exceed %d", MaxDecimals)
	}

	if value.IsNegative() {
		return 0, ErrInvalidAmount
	}

	scaled := value.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrAmountNotRepresented
	}

	if scaled.GreaterThan(maxUint64) {
		return 0, ErrAmountNotRepresented
	}

	return scaled.BigInt().Uint64(), nil
}

// StrToBaseUnits parses a string representation of a decimal value and
// converts it to base units
func StrToBaseUnits(value string, decimals uint8) (uint64, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidAmount, err.Error())
	}
	return ToBaseUnits(parsed, decimals)
}

// MustStrToBaseUnits calls StrToBaseUnits, panicking if there's an error.
//
// This should only be used if you know for sure this will not panic.
func MustStrToBaseUnits(value string, decimals uint8) uint64 {
	result, err := StrToBaseUnits(value, decimals)
	if err != nil {
		panic(err)
	}
	return result
}

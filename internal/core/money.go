package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Monetary amounts are fixed-point with exactly two fractional digits.
// Storage keeps them as integer cents so SQL sums stay exact; decimal.Decimal
// is the unit of exchange everywhere above the storage layer.

var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrAmountTooPrecise = errors.New("amount must have at most 2 decimal places")
)

// ValidateAmount checks that an amount is positive and fits 2 decimal places.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return ErrAmountTooPrecise
	}
	return nil
}

// ValidateAllocation checks a budget allocation, which may be zero.
func ValidateAllocation(d decimal.Decimal) error {
	if d.IsNegative() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(2)) {
		return ErrAmountTooPrecise
	}
	return nil
}

// Amount is a fixed-point monetary value. It behaves like the embedded
// decimal but always renders with exactly two fraction digits, so responses
// carry "450.00" rather than the trimmed "450".
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

func (a Amount) String() string {
	return a.StringFixed(2)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.StringFixed(2) + `"`), nil
}

// AmountFromCents converts integer cents into a two-place amount.
func AmountFromCents(cents int64) Amount {
	return Amount{Decimal: decimal.New(cents, -2)}
}

// AmountToCents converts a validated amount into integer cents.
func AmountToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// ZeroAmount is the canonical 0.00 value for aggregation results.
func ZeroAmount() Amount {
	return Amount{Decimal: decimal.New(0, -2)}
}

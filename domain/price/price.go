// Package price converts between decimal prices and the integer ticks the
// book stores.
package price

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultDigits gives a tick of 0.0001.
const DefaultDigits = 4

// MaxDigits keeps a scaled int64 comfortably away from overflow for any
// realistic price.
const MaxDigits = 9

// ErrOutOfRange reports a price that has no tick in [1, MaxInt64].
var ErrOutOfRange = errors.New("price: out of range")

var (
	half     = decimal.New(5, -1)
	maxTicks = decimal.NewFromInt(math.MaxInt64)
)

// Scale is a fixed-point price scale of 10^digits ticks per unit. Each
// instrument carries its own.
type Scale struct {
	digits int32
	factor decimal.Decimal
}

// NewScale returns a scale with the given number of fractional digits.
func NewScale(digits int32) (Scale, error) {
	if digits < 0 || digits > MaxDigits {
		return Scale{}, fmt.Errorf("price: digits %d out of range [0,%d]", digits, MaxDigits)
	}
	return Scale{digits: digits, factor: decimal.New(1, digits)}, nil
}

// Default is the 4-digit scale.
func Default() Scale {
	s, _ := NewScale(DefaultDigits)
	return s
}

func (s Scale) Digits() int32 { return s.digits }

// Factor is the number of ticks per unit.
func (s Scale) Factor() int64 { return s.factor.IntPart() }

// ToTicks rounds p to the nearest tick, halves going up. NaN, infinities
// and prices that round below one tick or past MaxInt64 ticks return
// ErrOutOfRange.
func (s Scale) ToTicks(p float64) (int64, error) {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, p)
	}
	return s.FromDecimal(decimal.NewFromFloat(p))
}

// FromDecimal is ToTicks for a decimal input.
func (s Scale) FromDecimal(d decimal.Decimal) (int64, error) {
	t := d.Shift(s.digits).Add(half).Floor()
	if t.Sign() <= 0 || t.GreaterThan(maxTicks) {
		return 0, fmt.Errorf("%w: %s at %d digits", ErrOutOfRange, d.String(), s.digits)
	}
	return t.IntPart(), nil
}

// ToFloat converts ticks back to a price.
func (s Scale) ToFloat(ticks int64) float64 {
	f, _ := s.ToDecimal(ticks).Float64()
	return f
}

// ToDecimal converts ticks to an exact decimal price.
func (s Scale) ToDecimal(ticks int64) decimal.Decimal {
	return decimal.New(ticks, -s.digits)
}

// Format renders ticks with exactly Digits fractional places.
func (s Scale) Format(ticks int64) string {
	return s.ToDecimal(ticks).StringFixed(s.digits)
}

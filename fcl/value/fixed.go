package value

import (
	"github.com/shopspring/decimal"
)

// Fixed-point precision bounds.
const (
	MinFixedPrec = 1
	MaxFixedPrec = 6
)

// ValidPrec reports whether a precision is in the supported 1..6 range.
func ValidPrec(prec uint8) bool {
	return prec >= MinFixedPrec && prec <= MaxFixedPrec
}

// NewFixed builds a fixed value from a scaled integer and precision.
func NewFixed(prec uint8, scaled int64) (Fixed, error) {
	if !ValidPrec(prec) {
		return Fixed{}, ErrBadPrecision
	}
	return Fixed{Prec: prec, Scaled: scaled}, nil
}

// FixedFromFloat converts a float to a fixed value at the given precision,
// rounding half to even. The rounding mode is part of the consensus
// contract; see the package documentation.
func FixedFromFloat(f float64, prec uint8) (Fixed, error) {
	if !ValidPrec(prec) {
		return Fixed{}, ErrBadPrecision
	}
	d := decimal.NewFromFloat(f).RoundBank(int32(prec))
	return fixedFromDecimal(d, prec)
}

// Float converts the fixed value to the nearest float64.
func (v Fixed) Float() float64 {
	f, _ := decimal.New(v.Scaled, -int32(v.Prec)).Float64()
	return f
}

// Cmp compares two same-precision fixed values, returning -1, 0 or 1.
func (v Fixed) Cmp(other Fixed) int {
	switch {
	case v.Scaled < other.Scaled:
		return -1
	case v.Scaled > other.Scaled:
		return 1
	default:
		return 0
	}
}

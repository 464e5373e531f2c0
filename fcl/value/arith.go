package value

import (
	"github.com/shopspring/decimal"
)

// Checked 64-bit arithmetic. Every operation reports overflow or
// underflow explicitly; silent wraparound would fork the chain the first
// time two implementations disagreed on a wrapped result.

// AddInt64 adds with overflow checking.
func AddInt64(a, b int64) (int64, error) {
	sum := a + b
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum >= 0) {
		if a > 0 {
			return 0, ErrOverflow
		}
		return 0, ErrUnderflow
	}
	return sum, nil
}

// SubInt64 subtracts with overflow checking.
func SubInt64(a, b int64) (int64, error) {
	diff := a - b
	if (b < 0 && a > 0 && diff < 0) || (b > 0 && a < 0 && diff >= 0) {
		if b < 0 {
			return 0, ErrOverflow
		}
		return 0, ErrUnderflow
	}
	return diff, nil
}

// MulInt64 multiplies with overflow checking.
func MulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/b != a {
		if (a > 0) == (b > 0) {
			return 0, ErrOverflow
		}
		return 0, ErrUnderflow
	}
	return prod, nil
}

// DivInt64 divides with a zero check. Division truncates toward zero.
func DivInt64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	// The single overflowing case: MinInt64 / -1.
	if a == -1<<63 && b == -1 {
		return 0, ErrOverflow
	}
	return a / b, nil
}

// Fixed-point arithmetic. Same-precision operands only; the script
// typechecker guarantees that before evaluation. Multiplication and
// division rescale through decimal arithmetic with banker's rounding at
// the operand precision so every validator rounds identically.

// AddFixed adds two same-precision fixed values.
func AddFixed(a, b Fixed) (Fixed, error) {
	scaled, err := AddInt64(a.Scaled, b.Scaled)
	if err != nil {
		return Fixed{}, err
	}
	return Fixed{Prec: a.Prec, Scaled: scaled}, nil
}

// SubFixed subtracts two same-precision fixed values.
func SubFixed(a, b Fixed) (Fixed, error) {
	scaled, err := SubInt64(a.Scaled, b.Scaled)
	if err != nil {
		return Fixed{}, err
	}
	return Fixed{Prec: a.Prec, Scaled: scaled}, nil
}

// MulFixed multiplies two same-precision fixed values, rounding half to
// even at the operand precision.
func MulFixed(a, b Fixed) (Fixed, error) {
	prod := decimal.New(a.Scaled, -int32(a.Prec)).
		Mul(decimal.New(b.Scaled, -int32(b.Prec))).
		RoundBank(int32(a.Prec))
	return fixedFromDecimal(prod, a.Prec)
}

// DivFixed divides two same-precision fixed values, rounding half to even
// at the operand precision.
func DivFixed(a, b Fixed) (Fixed, error) {
	if b.Scaled == 0 {
		return Fixed{}, ErrDivideByZero
	}
	// DivRound rounds half away from zero at the extra digit; a RoundBank
	// pass at the target precision pins the committed rounding mode.
	quot := decimal.New(a.Scaled, -int32(a.Prec)).
		DivRound(decimal.New(b.Scaled, -int32(b.Prec)), int32(a.Prec)+2).
		RoundBank(int32(a.Prec))
	return fixedFromDecimal(quot, a.Prec)
}

func fixedFromDecimal(d decimal.Decimal, prec uint8) (Fixed, error) {
	scaled := d.Shift(int32(prec))
	if !scaled.IsInteger() {
		scaled = scaled.RoundBank(0)
	}
	bi := scaled.BigInt()
	if !bi.IsInt64() {
		if bi.Sign() > 0 {
			return Fixed{}, ErrOverflow
		}
		return Fixed{}, ErrUnderflow
	}
	return Fixed{Prec: prec, Scaled: bi.Int64()}, nil
}

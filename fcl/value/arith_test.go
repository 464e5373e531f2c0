package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddInt64Overflow(t *testing.T) {
	_, err := AddInt64(math.MaxInt64, 1)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = AddInt64(math.MinInt64, -1)
	require.ErrorIs(t, err, ErrUnderflow)

	sum, err := AddInt64(40, 2)
	require.NoError(t, err)
	require.Equal(t, int64(42), sum)
}

func TestSubInt64Overflow(t *testing.T) {
	_, err := SubInt64(math.MaxInt64, -1)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = SubInt64(math.MinInt64, 1)
	require.ErrorIs(t, err, ErrUnderflow)
}

func TestMulInt64Overflow(t *testing.T) {
	_, err := MulInt64(math.MaxInt64, 2)
	require.ErrorIs(t, err, ErrOverflow)

	_, err = MulInt64(math.MaxInt64, -2)
	require.ErrorIs(t, err, ErrUnderflow)

	prod, err := MulInt64(-6, -7)
	require.NoError(t, err)
	require.Equal(t, int64(42), prod)
}

func TestDivInt64(t *testing.T) {
	_, err := DivInt64(10, 0)
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = DivInt64(math.MinInt64, -1)
	require.ErrorIs(t, err, ErrOverflow)

	q, err := DivInt64(10, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), q)
}

func TestFixedAddSub(t *testing.T) {
	a := Fixed{Prec: 2, Scaled: 150} // 1.50
	b := Fixed{Prec: 2, Scaled: 25}  // 0.25

	sum, err := AddFixed(a, b)
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 175}, sum)

	diff, err := SubFixed(a, b)
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 125}, diff)
}

func TestFixedMulRoundsHalfEven(t *testing.T) {
	// 0.15 * 0.15 = 0.0225 -> 0.02 at precision 2 (below the halfway point).
	a := Fixed{Prec: 2, Scaled: 15}
	prod, err := MulFixed(a, a)
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 2}, prod)

	// 0.25 * 0.25 = 0.0625 -> 0.06 at precision 2 (below the halfway point).
	b := Fixed{Prec: 2, Scaled: 25}
	prod, err = MulFixed(b, b)
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 6}, prod)

	// 0.05 * 0.50 = 0.025 is an exact tie -> 0.02 (2 is even).
	prod, err = MulFixed(Fixed{Prec: 2, Scaled: 5}, Fixed{Prec: 2, Scaled: 50})
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 2}, prod)
}

func TestFixedDiv(t *testing.T) {
	a := Fixed{Prec: 2, Scaled: 100} // 1.00
	b := Fixed{Prec: 2, Scaled: 300} // 3.00

	q, err := DivFixed(a, b)
	require.NoError(t, err)
	require.Equal(t, Fixed{Prec: 2, Scaled: 33}, q) // 0.33

	_, err = DivFixed(a, Fixed{Prec: 2, Scaled: 0})
	require.ErrorIs(t, err, ErrDivideByZero)
}

func TestFixedFromFloatTiesToEven(t *testing.T) {
	cases := []struct {
		in     float64
		prec   uint8
		scaled int64
	}{
		{0.25, 1, 2},  // 0.25 -> 0.2 (2 is even)
		{0.35, 1, 4},  // 0.35 -> 0.4 (half-even rounds up to even 4)
		{1.005, 2, 100},
		{2.675, 2, 268},
		{-0.25, 1, -2},
	}
	for _, tc := range cases {
		f, err := FixedFromFloat(tc.in, tc.prec)
		require.NoError(t, err)
		require.Equal(t, tc.scaled, f.Scaled, "input %v prec %d", tc.in, tc.prec)
	}
}

func TestFixedFromFloatBadPrecision(t *testing.T) {
	_, err := FixedFromFloat(1.0, 0)
	require.ErrorIs(t, err, ErrBadPrecision)
	_, err = FixedFromFloat(1.0, 7)
	require.ErrorIs(t, err, ErrBadPrecision)
}

func TestFixedFloatRoundTrip(t *testing.T) {
	f := Fixed{Prec: 3, Scaled: 1500}
	require.InDelta(t, 1.5, f.Float(), 1e-12)

	back, err := FixedFromFloat(f.Float(), 3)
	require.NoError(t, err)
	require.Equal(t, f, back)
}

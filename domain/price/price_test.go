package price

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScale(t *testing.T) {
	s := Default()
	assert.EqualValues(t, 4, s.Digits())
	assert.EqualValues(t, 10000, s.Factor())
}

func TestToTicksRoundsHalfUp(t *testing.T) {
	s := Default()
	cases := []struct {
		in   float64
		want int64
	}{
		{100, 1_000_000},
		{101.25, 1_012_500},
		{0.0001, 1},
		{1.00005, 10001},
		{1.00004, 10000},
		{0.00005, 1},
		{0.1 + 0.2, 3000},
	}
	for _, c := range cases {
		got, err := s.ToTicks(c.in)
		require.NoError(t, err, "ToTicks(%v)", c.in)
		assert.Equal(t, c.want, got, "ToTicks(%v)", c.in)
	}
}

func TestRoundTrip(t *testing.T) {
	s := Default()
	for _, p := range []float64{0.0001, 1, 99.99, 12345.6789} {
		ticks, err := s.ToTicks(p)
		require.NoError(t, err)
		assert.InDelta(t, p, s.ToFloat(ticks), 1e-9)
	}
	assert.Equal(t, "101.2500", s.Format(1_012_500))
}

func TestScalesCoexist(t *testing.T) {
	cents, err := NewScale(2)
	require.NoError(t, err)
	whole, err := NewScale(0)
	require.NoError(t, err)

	ticks, err := cents.ToTicks(12.345)
	require.NoError(t, err)
	assert.EqualValues(t, 1235, ticks)
	ticks, err = whole.ToTicks(12.5)
	require.NoError(t, err)
	assert.EqualValues(t, 13, ticks)
	assert.Equal(t, 12.35, cents.ToFloat(1235))
}

func TestNewScaleRejectsOutOfRange(t *testing.T) {
	_, err := NewScale(-1)
	require.Error(t, err)
	_, err = NewScale(MaxDigits + 1)
	require.Error(t, err)
}

func TestFromDecimal(t *testing.T) {
	s := Default()
	ticks, err := s.FromDecimal(decimal.RequireFromString("100.00005"))
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_001, ticks)
	assert.True(t, s.ToDecimal(1_000_001).Equal(decimal.RequireFromString("100.0001")))
}

func TestToTicksRejectsOutOfRange(t *testing.T) {
	s := Default()
	for _, p := range []float64{0, -1, 0.00004, 2e15, 1e300, math.NaN(), math.Inf(1), math.Inf(-1)} {
		ticks, err := s.ToTicks(p)
		assert.ErrorIs(t, err, ErrOutOfRange, "ToTicks(%v)", p)
		assert.Zero(t, ticks, "ToTicks(%v)", p)
	}

	// the largest price that still fits
	ticks, err := s.FromDecimal(decimal.New(math.MaxInt64, -DefaultDigits))
	require.NoError(t, err)
	assert.EqualValues(t, int64(math.MaxInt64), ticks)

	_, err = s.FromDecimal(decimal.New(math.MaxInt64, -DefaultDigits).Add(decimal.New(1, -DefaultDigits)))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

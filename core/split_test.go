package core

import (
	"math"
	"testing"

	"tax-token-program/core/model"

	"github.com/stretchr/testify/require"
)

func TestComputeSplit(t *testing.T) {
	split, err := ComputeSplit(100_000, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), split.Tax)
	require.Equal(t, uint64(1000), split.DevFee)
	require.Equal(t, uint64(94_000), split.Net)
}

func TestComputeSplitZeroAmount(t *testing.T) {
	split, err := ComputeSplit(0, 5)
	require.NoError(t, err)
	require.Zero(t, split.Tax)
	require.Zero(t, split.DevFee)
	require.Zero(t, split.Net)
}

func TestComputeSplitTruncates(t *testing.T) {
	// 19 * 5 / 100 = 0.95, floors to zero
	split, err := ComputeSplit(19, 5)
	require.NoError(t, err)
	require.Zero(t, split.Tax)
	require.Zero(t, split.DevFee)

	split, err = ComputeSplit(199, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(13), split.Tax)
	require.Equal(t, uint64(1), split.DevFee)
	require.Equal(t, uint64(185), split.Net)
}

func TestComputeSplitZeroTax(t *testing.T) {
	for _, amount := range []uint64{0, 1, 99, 100, 12_345, math.MaxUint64} {
		split, err := ComputeSplit(amount, 0)
		require.NoError(t, err)
		require.Zero(t, split.Tax)
		require.Equal(t, amount/100, split.DevFee)
	}
}

func TestComputeSplitBounds(t *testing.T) {
	amounts := []uint64{0, 1, 7, 99, 100, 101, 999, 1_000, 100_000, 123_456_789, math.MaxUint64 / 100}
	for pct := uint8(0); pct < 100; pct++ {
		for _, amount := range amounts {
			split, err := ComputeSplit(amount, pct)
			require.NoError(t, err, "amount %d pct %d", amount, pct)
			require.Equal(t, amount*uint64(pct)/100, split.Tax)
			require.Equal(t, amount/100, split.DevFee)
			require.LessOrEqual(t, split.Tax+split.DevFee, amount)
			require.Equal(t, amount, split.Tax+split.DevFee+split.Net)
		}
	}
}

func TestComputeSplitFullTax(t *testing.T) {
	split, err := ComputeSplit(99, 100)
	require.NoError(t, err)
	require.Equal(t, uint64(99), split.Tax)
	require.Zero(t, split.DevFee)

	_, err = ComputeSplit(100, 100)
	require.ErrorIs(t, err, model.ErrSplitExceedsAmount)
	require.NotErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestComputeSplitOverflow(t *testing.T) {
	_, err := ComputeSplit(math.MaxUint64, 5)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)

	_, err = ComputeSplit(math.MaxUint64/2+1, 2)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)
}

func TestComputeSplitRejectsTaxOverHundred(t *testing.T) {
	_, err := ComputeSplit(1_000, 101)
	require.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

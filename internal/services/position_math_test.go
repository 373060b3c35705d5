package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplySell(t *testing.T) {
	remaining, proceeds, err := ApplySell(dec("10"), dec("4"), dec("150.50"))
	require.NoError(t, err)
	assert.True(t, remaining.Equal(dec("6")))
	assert.True(t, proceeds.Equal(dec("602")))
}

func TestApplySellEntirePosition(t *testing.T) {
	remaining, proceeds, err := ApplySell(dec("2.5"), dec("2.5"), dec("100"))
	require.NoError(t, err)
	assert.True(t, remaining.IsZero())
	assert.True(t, proceeds.Equal(dec("250")))
}

func TestApplySellMoreThanHeld(t *testing.T) {
	remaining, _, err := ApplySell(dec("10"), dec("10.01"), dec("100"))

	var insufficientErr *InsufficientQuantityError
	require.ErrorAs(t, err, &insufficientErr)
	assert.True(t, insufficientErr.Have.Equal(dec("10")))
	assert.True(t, insufficientErr.Want.Equal(dec("10.01")))
	assert.True(t, remaining.Equal(dec("10")), "rejected sell leaves quantity untouched")
}

func TestApplySellNonPositiveQuantity(t *testing.T) {
	for _, qty := range []string{"0", "-1"} {
		_, _, err := ApplySell(dec("10"), dec(qty), dec("100"))

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr, "quantity %s", qty)
	}
}

func TestApplySellNoFloatDrift(t *testing.T) {
	// 0.3 - 0.1 would be 0.19999... in binary floating point.
	remaining, proceeds, err := ApplySell(dec("0.3"), dec("0.1"), dec("3"))
	require.NoError(t, err)
	assert.Equal(t, "0.2", remaining.String())
	assert.Equal(t, "0.3", proceeds.String())
}

func TestMergeLotsWeightedAverage(t *testing.T) {
	earlier := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	quantity, price, date := MergeLots(
		dec("10"), dec("100"), later,
		dec("30"), dec("200"), earlier,
	)

	assert.True(t, quantity.Equal(dec("40")))
	// (10*100 + 30*200) / 40 = 175
	assert.True(t, price.Equal(dec("175")))
	assert.Equal(t, earlier, date, "earlier purchase date wins")
}

func TestMergeLotsZeroQuantity(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	quantity, price, _ := MergeLots(
		dec("0"), dec("100"), day,
		dec("0"), dec("200"), day,
	)

	assert.True(t, quantity.IsZero())
	assert.True(t, price.IsZero(), "no division by a zero total")
}

func TestMergeLotsFractionalShares(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	quantity, price, _ := MergeLots(
		dec("0.5"), dec("120"), day,
		dec("1.5"), dec("80"), day,
	)

	assert.True(t, quantity.Equal(dec("2")))
	// (0.5*120 + 1.5*80) / 2 = 90
	assert.True(t, price.Equal(dec("90")))
}

package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestPositionMetrics(t *testing.T) {
	// 10 shares bought at $100, now trading at $150.
	m := Position(dec("10"), dec("100"), decPtr("150"))

	require.True(t, m.PriceKnown)
	assert.True(t, m.TotalCost.Equal(dec("1000")), "total cost = %s", m.TotalCost)
	assert.True(t, m.CurrentValue.Equal(dec("1500")), "current value = %s", m.CurrentValue)
	assert.True(t, m.GainLoss.Equal(dec("500")), "gain/loss = %s", m.GainLoss)
	assert.True(t, m.GainLossPercent.Equal(dec("50")), "gain/loss %% = %s", m.GainLossPercent)
}

func TestPositionMetricsFractionalShares(t *testing.T) {
	m := Position(dec("2.5000"), dec("10.10"), decPtr("12.34"))

	assert.True(t, m.TotalCost.Equal(dec("25.25")))
	assert.True(t, m.CurrentValue.Equal(dec("30.85")))
	assert.True(t, m.GainLoss.Equal(dec("5.6")))
}

func TestPositionMetricsUnknownPrice(t *testing.T) {
	m := Position(dec("10"), dec("100"), nil)

	assert.False(t, m.PriceKnown, "missing price must be reported, not valued at zero")
	assert.True(t, m.TotalCost.Equal(dec("1000")), "cost basis is independent of the quote")
	assert.True(t, m.CurrentValue.IsZero())
	assert.True(t, m.GainLossPercent.IsZero())
}

func TestGainLossPercentZeroCostBasis(t *testing.T) {
	assert.True(t, GainLossPercent(dec("123.45"), decimal.Zero).IsZero())
	assert.True(t, GainLossPercent(decimal.Zero, decimal.Zero).IsZero())
}

func TestSumNoFloatDrift(t *testing.T) {
	// 150 lots of 0.1 shares at $0.30 each. Under float64 accumulation the
	// total drifts; under decimals it is exactly $4.50 cost and $6.00 value.
	metrics := make([]Metrics, 0, 150)
	for i := 0; i < 150; i++ {
		metrics = append(metrics, Position(dec("0.1"), dec("0.30"), decPtr("0.40")))
	}

	totals := Sum(decimal.Zero, metrics)

	require.True(t, totals.AllPricesKnown)
	assert.True(t, totals.TotalCost.Equal(dec("4.5")), "total cost = %s", totals.TotalCost)
	assert.True(t, totals.TotalValue.Equal(dec("6")), "total value = %s", totals.TotalValue)
	assert.True(t, totals.TotalGainLoss.Equal(dec("1.5")))
}

func TestSumIncludesCashAndFlagsMissingPrices(t *testing.T) {
	metrics := []Metrics{
		Position(dec("10"), dec("100"), decPtr("150")),
		Position(dec("5"), dec("20"), nil),
	}

	totals := Sum(dec("250"), metrics)

	assert.False(t, totals.AllPricesKnown)
	// Cash plus the one valued position; the unpriced lot adds cost only.
	assert.True(t, totals.TotalValue.Equal(dec("1750")), "total value = %s", totals.TotalValue)
	assert.True(t, totals.TotalCost.Equal(dec("1100")))
	assert.True(t, totals.TotalGainLoss.Equal(dec("400")))
}

func TestRoundCurrency(t *testing.T) {
	assert.Equal(t, "1234.57", RoundCurrency(dec("1234.567")).StringFixed(2))
	assert.Equal(t, "0.00", RoundCurrency(decimal.Zero).StringFixed(2))
}

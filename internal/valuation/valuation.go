// Package valuation derives cost, value and gain/loss figures for positions
// and portfolios. All arithmetic stays in decimal form; callers round to two
// places only when formatting for display or export.
package valuation

import "github.com/shopspring/decimal"

// Cost returns quantity × purchasePrice exactly.
func Cost(quantity, purchasePrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(purchasePrice)
}

// Value returns quantity × currentPrice. The second result is false when the
// current price is unknown; an unknown price is reported as unavailable, never
// substituted with zero.
func Value(quantity decimal.Decimal, currentPrice *decimal.Decimal) (decimal.Decimal, bool) {
	if currentPrice == nil {
		return decimal.Zero, false
	}
	return quantity.Mul(*currentPrice), true
}

// GainLossPercent returns gainLoss / totalCost × 100. A zero (or negative)
// cost basis yields exactly 0, not NaN or an infinity.
func GainLossPercent(gainLoss, totalCost decimal.Decimal) decimal.Decimal {
	if totalCost.Sign() <= 0 {
		return decimal.Zero
	}
	return gainLoss.Div(totalCost).Mul(decimal.NewFromInt(100))
}

// Metrics holds the derived figures for one position. When PriceKnown is
// false, CurrentValue, GainLoss and GainLossPercent are meaningless and the
// position must be displayed as "N/A" rather than $0.
type Metrics struct {
	TotalCost       decimal.Decimal
	CurrentValue    decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
	PriceKnown      bool
}

// Position computes the full metric set for a single holding.
func Position(quantity, purchasePrice decimal.Decimal, currentPrice *decimal.Decimal) Metrics {
	m := Metrics{TotalCost: Cost(quantity, purchasePrice)}

	value, known := Value(quantity, currentPrice)
	if !known {
		return m
	}

	m.PriceKnown = true
	m.CurrentValue = value
	m.GainLoss = value.Sub(m.TotalCost)
	m.GainLossPercent = GainLossPercent(m.GainLoss, m.TotalCost)
	return m
}

// Totals aggregates a portfolio. TotalValue includes the cash balance;
// gain/loss covers invested positions only. Positions with unknown prices
// contribute their cost but no value, and AllPricesKnown turns false so the
// caller can flag the aggregate as incomplete.
type Totals struct {
	TotalCost       decimal.Decimal
	TotalValue      decimal.Decimal
	TotalGainLoss   decimal.Decimal
	GainLossPercent decimal.Decimal
	AllPricesKnown  bool
}

// Sum folds per-position metrics into portfolio totals.
func Sum(cash decimal.Decimal, positions []Metrics) Totals {
	t := Totals{AllPricesKnown: true}

	invested := decimal.Zero
	for _, m := range positions {
		t.TotalCost = t.TotalCost.Add(m.TotalCost)
		if m.PriceKnown {
			invested = invested.Add(m.CurrentValue)
		} else {
			t.AllPricesKnown = false
		}
	}

	t.TotalValue = cash.Add(invested)
	t.TotalGainLoss = invested.Sub(t.TotalCost)
	t.GainLossPercent = GainLossPercent(t.TotalGainLoss, t.TotalCost)
	return t
}

// RoundCurrency rounds to two fractional digits for presentation. Storage and
// intermediate arithmetic keep full precision.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

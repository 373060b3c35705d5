package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/valuation"
)

// ExportPortfolioCSV renders a portfolio as a downloadable CSV: a summary
// header block followed by one row per position. Unknown prices export as
// "N/A", never as 0. Pure formatting; rounding to two places happens here and
// nowhere earlier.
func ExportPortfolioCSV(detail *models.PortfolioDetail) []byte {
	var b strings.Builder

	writeRow(&b, quoted("Portfolio"), quoted(detail.Name))
	writeRow(&b, quoted("Description"), quoted(detail.Description))
	writeRow(&b, quoted("Cash Balance"), money(detail.CashBalance))
	writeRow(&b, quoted("Total Cost"), money(detail.TotalCost))
	writeRow(&b, quoted("Total Value"), money(detail.TotalValue))
	writeRow(&b, quoted("Total Gain/Loss"), money(detail.TotalGainLoss))
	writeRow(&b, quoted("Gain/Loss %"), detail.GainLossPercent.StringFixed(2)+"%")
	b.WriteString("\n")

	writeRow(&b,
		quoted("Symbol"), quoted("Name"), quoted("Quantity"), quoted("Purchase Price"),
		quoted("Current Price"), quoted("Total Cost"), quoted("Current Value"),
		quoted("Gain/Loss"), quoted("Gain/Loss %"), quoted("Analyst Recommendation"),
		quoted("Analyst Target"), quoted("Purchase Date"))

	for _, p := range detail.Positions {
		name, recommendation, target := "", "", "N/A"
		currentPrice := "N/A"
		if p.Stock != nil {
			name = p.Stock.Name
			recommendation = p.Stock.AnalystRecommendation
			if p.Stock.CurrentPrice != nil {
				currentPrice = money(*p.Stock.CurrentPrice)
			}
			if p.Stock.AnalystTargetPrice != nil {
				target = money(*p.Stock.AnalystTargetPrice)
			}
		}

		currentValue, gainLoss, gainLossPct := "N/A", "N/A", "N/A"
		if p.CurrentValue != nil {
			currentValue = money(*p.CurrentValue)
			gainLoss = money(*p.GainLoss)
			gainLossPct = p.GainLossPercent.StringFixed(2) + "%"
		}

		writeRow(&b,
			quoted(p.Symbol),
			quoted(name),
			p.Quantity.String(),
			money(p.PurchasePrice),
			currentPrice,
			money(p.TotalCost),
			currentValue,
			gainLoss,
			gainLossPct,
			quoted(recommendation),
			target,
			quoted(p.PurchaseDate.Format("2006-01-02")),
		)
	}

	return []byte(b.String())
}

func writeRow(b *strings.Builder, fields ...string) {
	b.WriteString(strings.Join(fields, ","))
	b.WriteString("\n")
}

func quoted(s string) string {
	return fmt.Sprintf("%q", s)
}

func money(d decimal.Decimal) string {
	return valuation.RoundCurrency(d).StringFixed(2)
}

package services

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/internal/models"
)

func exportFixture() *models.PortfolioDetail {
	applePrice := dec("175.25")
	appleValue := dec("1752.50")
	appleGain := dec("252.50")
	appleGainPct := dec("16.8333333")

	detail := &models.PortfolioDetail{
		PortfolioSummary: models.PortfolioSummary{
			Portfolio: models.Portfolio{
				Name:        "Growth",
				Description: "Tech heavy",
				CashBalance: dec("250"),
			},
			PositionCount:   2,
			TotalCost:       dec("2100"),
			TotalValue:      dec("4002.50"),
			TotalGainLoss:   dec("252.50"),
			GainLossPercent: dec("12.023809"),
			MissingPrices:   []string{"PRIV"},
		},
		Positions: []models.PositionDetail{
			{
				Position: models.Position{
					Symbol:        "AAPL",
					Quantity:      dec("10"),
					PurchasePrice: dec("150"),
					PurchaseDate:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
				},
				Stock: &models.Stock{
					Symbol:       "AAPL",
					Name:         "Apple Inc.",
					CurrentPrice: &applePrice,
				},
				TotalCost:       dec("1500"),
				CurrentValue:    &appleValue,
				GainLoss:        &appleGain,
				GainLossPercent: &appleGainPct,
			},
			{
				Position: models.Position{
					Symbol:        "PRIV",
					Quantity:      dec("6"),
					PurchasePrice: dec("100"),
					PurchaseDate:  time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
				},
				Stock: &models.Stock{
					Symbol: "PRIV",
					Name:   "Private Holdings",
				},
				TotalCost: dec("600"),
			},
		},
	}
	return detail
}

func TestExportPortfolioCSVSummaryBlock(t *testing.T) {
	out := string(ExportPortfolioCSV(exportFixture()))
	lines := strings.Split(out, "\n")

	assert.Equal(t, `"Portfolio","Growth"`, lines[0])
	assert.Equal(t, `"Description","Tech heavy"`, lines[1])
	assert.Equal(t, `"Cash Balance",250.00`, lines[2])
	assert.Equal(t, `"Total Cost",2100.00`, lines[3])
	assert.Equal(t, `"Total Value",4002.50`, lines[4])
	assert.Equal(t, `"Total Gain/Loss",252.50`, lines[5])
	assert.Equal(t, `"Gain/Loss %",12.02%`, lines[6])
	assert.Equal(t, "", lines[7], "blank line between summary and positions")
}

func TestExportPortfolioCSVPositionRows(t *testing.T) {
	out := string(ExportPortfolioCSV(exportFixture()))
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 10)

	header := lines[8]
	assert.True(t, strings.HasPrefix(header, `"Symbol","Name","Quantity"`))

	apple := lines[9]
	assert.Contains(t, apple, `"AAPL"`)
	assert.Contains(t, apple, "175.25")
	assert.Contains(t, apple, "1752.50")
	assert.Contains(t, apple, "16.83%")
	assert.Contains(t, apple, "2024-01-15")
}

func TestExportPortfolioCSVUnknownPriceIsNA(t *testing.T) {
	out := string(ExportPortfolioCSV(exportFixture()))
	lines := strings.Split(out, "\n")

	private := lines[10]
	assert.Contains(t, private, `"PRIV"`)
	assert.Contains(t, private, "N/A")
	assert.NotContains(t, private, "0.00%", "a missing price must never export as zero")
}

func TestExportPortfolioCSVRoundsOnlyAtPresentation(t *testing.T) {
	detail := exportFixture()
	// A third of a cent survives until the export formats it.
	detail.TotalValue = decimal.RequireFromString("1000.005")

	out := string(ExportPortfolioCSV(detail))
	assert.Contains(t, out, `"Total Value",1000.01`)
}

package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/internal/models"
)

type fakeResolver struct {
	known   map[string]string
	lookups int
}

func (f *fakeResolver) ResolveSymbol(symbol string) (*models.Stock, error) {
	f.lookups++
	name, ok := f.known[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return &models.Stock{Symbol: symbol, Name: name}, nil
}

func catalogResolver() *fakeResolver {
	return &fakeResolver{known: map[string]string{
		"AAPL":  "Apple Inc.",
		"GOOGL": "Alphabet Inc.",
		"MSFT":  "Microsoft Corporation",
	}}
}

func TestParseCSVDetectsAliasedColumns(t *testing.T) {
	content := []byte("Ticker,Shares,Cost Basis,Buy Date,Comments\n" +
		"aapl,10,150.00,2024-01-15,long term\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"symbol":         0,
		"quantity":       1,
		"purchase_price": 2,
		"purchase_date":  3,
		"notes":          4,
	}, result.ColumnMapping)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, 2, row.RowNumber, "first data row is row 2")
	assert.Equal(t, "AAPL", row.Symbol)
	assert.Equal(t, "Apple Inc.", row.StockName)
	assert.True(t, row.Quantity.Equal(dec("10")))
	assert.True(t, row.PurchasePrice.Equal(dec("150.00")))
	assert.Equal(t, "2024-01-15", row.PurchaseDate)
	assert.Equal(t, "long term", row.Notes)
	assert.True(t, row.Valid())
}

func TestParseCSVMissingSymbolColumn(t *testing.T) {
	content := []byte("Shares,Price\n10,150\n")

	_, err := ParseCSV(content, nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Message, "required column 'symbol' not found")
}

func TestParseCSVCountsPartitionTotal(t *testing.T) {
	content := []byte("symbol,quantity,purchase price\n" +
		"AAPL,10,150\n" +
		"UNKNOWN,5,50\n" +
		"GOOGL,-3,100\n" +
		"MSFT,2,300\n" +
		"GOOGL,1,140\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 3, result.ValidRows)
	assert.Equal(t, 2, result.ErrorRows)
	assert.Equal(t, result.TotalRows, result.ValidRows+result.ErrorRows)
}

func TestParseCSVSkipsEmptyRows(t *testing.T) {
	content := []byte("symbol,quantity\nAAPL,10\n,,\n\nGOOGL,5\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.ValidRows)
}

func TestParseCSVCleansCurrencyNoise(t *testing.T) {
	content := []byte("symbol,quantity,purchase price\n" +
		"AAPL,\"1,500 shares\",\"$1,234.56\"\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.True(t, row.Valid())
	assert.True(t, row.Quantity.Equal(dec("1500")))
	assert.True(t, row.PurchasePrice.Equal(dec("1234.56")))
}

func TestParseCSVNegativeValuesRejected(t *testing.T) {
	content := []byte("symbol,quantity,purchase price\n" +
		"AAPL,-5,100\n" +
		"GOOGL,5,-100\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 2)
	assert.Contains(t, result.Rows[0].Errors, "Quantity cannot be negative")
	assert.Contains(t, result.Rows[1].Errors, "Purchase price cannot be negative")
	assert.Equal(t, 0, result.ValidRows)
}

func TestParseCSVUnknownSymbolIsRowError(t *testing.T) {
	content := []byte("symbol,quantity\nZZZZ,10\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Contains(t, result.Rows[0].Errors, "Stock symbol 'ZZZZ' not found")
	assert.Equal(t, 1, result.ErrorRows)
}

func TestParseCSVResolvesEachSymbolOnce(t *testing.T) {
	content := []byte("symbol,quantity\nAAPL,1\nAAPL,2\nAAPL,3\nGOOGL,4\n")
	resolver := catalogResolver()

	result, err := ParseCSV(content, resolver)
	require.NoError(t, err)

	assert.Equal(t, 4, result.ValidRows)
	assert.Equal(t, 2, resolver.lookups, "duplicate symbols share one catalog lookup")
}

func TestParseCSVSniffsSemicolonDelimiter(t *testing.T) {
	content := []byte("symbol;quantity;purchase price\nAAPL;10;150\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "AAPL", result.Rows[0].Symbol)
	assert.True(t, result.Rows[0].Quantity.Equal(dec("10")))
}

func TestParseCSVUnparsableDateFallsBackToToday(t *testing.T) {
	content := []byte("symbol,quantity,purchase date\nAAPL,10,someday\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.True(t, row.Valid(), "bad date is a warning, not an error")
	assert.Equal(t, time.Now().Format("2006-01-02"), row.PurchaseDate)
	require.Len(t, row.Warnings, 1)
	assert.Contains(t, row.Warnings[0], "someday")
}

func TestParseCSVMissingQuantityDefaultsToZeroWithWarning(t *testing.T) {
	content := []byte("symbol,quantity\nAAPL,\n")

	result, err := ParseCSV(content, catalogResolver())
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.True(t, row.Valid())
	assert.True(t, row.Quantity.IsZero())
	assert.Contains(t, row.Warnings, "No quantity provided, defaulted to 0")
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV([]byte(""), nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

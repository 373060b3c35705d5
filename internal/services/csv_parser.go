package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"portfolio-tracker/internal/models"
)

// SymbolResolver checks a ticker against the stock catalog. Row validation
// uses it so unknown symbols surface as row errors before anything is
// committed.
type SymbolResolver interface {
	ResolveSymbol(symbol string) (*models.Stock, error)
}

// Header aliases for the logical import fields. Only symbol is mandatory;
// files from different brokers label the other columns however they like.
var csvColumnAliases = map[string][]string{
	"symbol":   {"symbol", "ticker", "stock"},
	"quantity": {"quantity", "shares", "qty"},
	"purchase_price": {
		"purchase price", "buy price", "cost basis", "purchase_price",
		"price paid", "cost per share", "avg cost",
	},
	"purchase_date": {
		"purchase date", "buy date", "date", "purchase_date",
		"date acquired", "acquisition date",
	},
	"notes": {"notes", "comments", "description"},
}

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

var csvDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
}

// ParseResult is the outcome of parsing one uploaded file. ValidRows and
// ErrorRows partition TotalRows: a row is valid iff it carries no errors.
type ParseResult struct {
	ColumnMapping map[string]int
	Rows          []models.ImportRow
	FileErrors    []models.ImportError
	TotalRows     int
	ValidRows     int
	ErrorRows     int
}

// ParseCSV parses and validates CSV content. Row defects never abort the
// batch; only a file that cannot be read at all, or that lacks a symbol
// column, fails outright with a ValidationError.
func ParseCSV(content []byte, resolver SymbolResolver) (*ParseResult, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, validationErrorf("failed to parse CSV file: %v", err)
	}
	if len(records) < 1 {
		return nil, validationErrorf("CSV file is empty")
	}

	mapping, err := detectColumnMapping(records[0])
	if err != nil {
		return nil, err
	}

	result := &ParseResult{ColumnMapping: mapping}
	for i, record := range records[1:] {
		if emptyRecord(record) {
			continue
		}
		// Header is line 1, so the first data row is 2.
		result.Rows = append(result.Rows, parseRow(record, i+2, mapping))
	}

	resolveSymbols(result.Rows, resolver)

	result.TotalRows = len(result.Rows)
	for _, row := range result.Rows {
		if row.Valid() {
			result.ValidRows++
		} else {
			result.ErrorRows++
		}
	}
	return result, nil
}

// sniffDelimiter picks the most frequent candidate separator in the first
// kilobyte, defaulting to a comma.
func sniffDelimiter(content []byte) rune {
	sample := content
	if len(sample) > 1024 {
		sample = sample[:1024]
	}

	best, bestCount := ',', bytes.Count(sample, []byte{','})
	for _, cand := range []byte{';', '\t'} {
		if n := bytes.Count(sample, []byte{cand}); n > bestCount {
			best, bestCount = rune(cand), n
		}
	}
	return best
}

func detectColumnMapping(header []string) (map[string]int, error) {
	mapping := make(map[string]int)

	for field, aliases := range csvColumnAliases {
		for i, col := range header {
			if matchesAlias(col, aliases) {
				mapping[field] = i
				break
			}
		}
	}

	if _, ok := mapping["symbol"]; !ok {
		return nil, validationErrorf(
			"required column 'symbol' not found, looking for: %s",
			strings.Join(csvColumnAliases["symbol"], ", "))
	}
	return mapping, nil
}

func matchesAlias(header string, aliases []string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	for _, alias := range aliases {
		if h == alias {
			return true
		}
	}
	return false
}

func emptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cellAt(record []string, mapping map[string]int, field string) (string, bool) {
	idx, ok := mapping[field]
	if !ok || idx >= len(record) {
		return "", false
	}
	return strings.TrimSpace(record[idx]), true
}

func parseRow(record []string, rowNumber int, mapping map[string]int) models.ImportRow {
	row := models.ImportRow{RowNumber: rowNumber, Errors: []string{}}

	symbol, _ := cellAt(record, mapping, "symbol")
	if symbol == "" {
		row.Errors = append(row.Errors, "Symbol is required")
	} else {
		row.Symbol = strings.ToUpper(symbol)
	}

	parseRowQuantity(&row, record, mapping)
	parseRowPrice(&row, record, mapping)
	parseRowDate(&row, record, mapping)

	if notes, ok := cellAt(record, mapping, "notes"); ok && notes != "" {
		row.Notes = notes
	}
	return row
}

func parseRowQuantity(row *models.ImportRow, record []string, mapping map[string]int) {
	raw, mapped := cellAt(record, mapping, "quantity")
	if !mapped {
		zero := decimal.Zero
		row.Quantity = &zero
		row.Warnings = append(row.Warnings, "Quantity column not found, defaulted to 0")
		return
	}

	cleaned := cleanNumber(raw, "shares", "qty:", "qty")
	if cleaned == "" {
		zero := decimal.Zero
		row.Quantity = &zero
		row.Warnings = append(row.Warnings, "No quantity provided, defaulted to 0")
		return
	}

	quantity, err := decimal.NewFromString(cleaned)
	if err != nil {
		row.Errors = append(row.Errors, fmt.Sprintf("Could not parse quantity '%s'", raw))
		return
	}
	if quantity.Sign() < 0 {
		row.Errors = append(row.Errors, "Quantity cannot be negative")
		return
	}
	row.Quantity = &quantity
}

func parseRowPrice(row *models.ImportRow, record []string, mapping map[string]int) {
	raw, mapped := cellAt(record, mapping, "purchase_price")
	if !mapped {
		zero := decimal.Zero
		row.PurchasePrice = &zero
		row.Warnings = append(row.Warnings, "Purchase price column not found, defaulted to 0")
		return
	}

	cleaned := cleanNumber(raw, "$", "€", "£", "usd", "price:", "cost:")
	if cleaned == "" {
		zero := decimal.Zero
		row.PurchasePrice = &zero
		row.Warnings = append(row.Warnings, "No purchase price provided, defaulted to 0")
		return
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		row.Errors = append(row.Errors, fmt.Sprintf("Could not parse price '%s'", raw))
		return
	}
	if price.Sign() < 0 {
		row.Errors = append(row.Errors, "Purchase price cannot be negative")
		return
	}
	row.PurchasePrice = &price
}

func parseRowDate(row *models.ImportRow, record []string, mapping map[string]int) {
	raw, mapped := cellAt(record, mapping, "purchase_date")
	if !mapped || raw == "" {
		row.PurchaseDate = time.Now().Format("2006-01-02")
		return
	}

	for _, format := range csvDateFormats {
		if parsed, err := time.Parse(format, raw); err == nil {
			row.PurchaseDate = parsed.Format("2006-01-02")
			return
		}
	}

	row.Warnings = append(row.Warnings,
		fmt.Sprintf("Could not parse date '%s', using today's date", raw))
	row.PurchaseDate = time.Now().Format("2006-01-02")
}

// cleanNumber strips currency symbols, grouping commas, whitespace and known
// unit words so values like "$1,234.56" or "10 shares" parse.
func cleanNumber(raw string, noise ...string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	for _, n := range noise {
		cleaned = strings.ReplaceAll(cleaned, n, "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	return nonNumericRe.ReplaceAllString(cleaned, "")
}

// resolveSymbols validates each distinct ticker once against the catalog and
// annotates every row referencing it. A nil resolver skips validation.
func resolveSymbols(rows []models.ImportRow, resolver SymbolResolver) {
	if resolver == nil {
		return
	}

	type lookup struct {
		name string
		err  error
	}
	seen := make(map[string]lookup)

	for i := range rows {
		row := &rows[i]
		if row.Symbol == "" || !row.Valid() {
			continue
		}

		result, ok := seen[row.Symbol]
		if !ok {
			stock, err := resolver.ResolveSymbol(row.Symbol)
			if err != nil {
				result = lookup{err: err}
			} else {
				result = lookup{name: stock.Name}
			}
			seen[row.Symbol] = result
		}

		if result.err != nil {
			row.Errors = append(row.Errors, fmt.Sprintf("Stock symbol '%s' not found", row.Symbol))
		} else {
			row.StockName = result.name
		}
	}
}

package client

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ImportRowError is a diagnostic from the server's preview. Row 0 means the
// error applies to the whole file.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRow mirrors one parsed CSV row as returned in the preview sample.
type ImportRow struct {
	RowNumber     int              `json:"row_number"`
	Symbol        string           `json:"symbol"`
	StockName     string           `json:"stock_name"`
	Quantity      *decimal.Decimal `json:"quantity"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	PurchaseDate  string           `json:"purchase_date"`
	Notes         string           `json:"notes"`
	Errors        []string         `json:"errors"`
	Warnings      []string         `json:"warnings"`
}

// ImportPreview is the upload response: identity of the pending import plus
// everything needed to render the review screen. Row counts cover the whole
// file; SampleData is capped server-side.
type ImportPreview struct {
	ImportID      string           `json:"import_id"`
	Status        string           `json:"status"`
	TotalRows     int              `json:"total_rows"`
	ValidRows     int              `json:"valid_rows"`
	ErrorRows     int              `json:"error_rows"`
	ColumnMapping map[string]int   `json:"column_mapping"`
	Errors        []ImportRowError `json:"errors"`
	SampleData    []ImportRow      `json:"sample_data"`
}

// MappingLabels renders the detected column mapping for display, one label
// per detected field, ordered by column position. Column numbers are 1-based
// the way a spreadsheet shows them.
func (p *ImportPreview) MappingLabels() []string {
	type mapping struct {
		field string
		col   int
	}
	mappings := make([]mapping, 0, len(p.ColumnMapping))
	for field, col := range p.ColumnMapping {
		mappings = append(mappings, mapping{field: field, col: col})
	}
	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].col < mappings[j].col
	})

	labels := make([]string, 0, len(mappings))
	for _, m := range mappings {
		labels = append(labels, fmt.Sprintf("%s: column %d", m.field, m.col+1))
	}
	return labels
}

// HasValidRows reports whether confirming this preview would create anything.
func (p *ImportPreview) HasValidRows() bool {
	return p.ValidRows > 0
}

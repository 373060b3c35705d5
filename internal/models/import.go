package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CSVImport statuses. An import is created in preview and consumed exactly once:
// confirm moves it to completed, anything unrecoverable to failed.
const (
	ImportStatusPreview   = "preview"
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// PreviewSampleSize caps how many rows the preview shows. Row counts always
// cover the whole file, only the displayed sample is bounded.
const PreviewSampleSize = 10

// ImportRow is the parse result for a single CSV data row. RowNumber is
// 1-based and matches the source file with the header excluded (the first data
// row is row 2, as a spreadsheet would show it). Parsed fields are nil/empty
// when the cell could not be interpreted; a row is valid iff Errors is empty.
type ImportRow struct {
	RowNumber     int              `bson:"row_number" json:"row_number"`
	Symbol        string           `bson:"symbol,omitempty" json:"symbol,omitempty"`
	StockName     string           `bson:"stock_name,omitempty" json:"stock_name,omitempty"`
	Quantity      *decimal.Decimal `bson:"quantity,omitempty" json:"quantity,omitempty"`
	PurchasePrice *decimal.Decimal `bson:"purchase_price,omitempty" json:"purchase_price,omitempty"`
	PurchaseDate  string           `bson:"purchase_date,omitempty" json:"purchase_date,omitempty"`
	Notes         string           `bson:"notes,omitempty" json:"notes,omitempty"`
	Errors        []string         `bson:"errors,omitempty" json:"errors"`
	Warnings      []string         `bson:"warnings,omitempty" json:"warnings,omitempty"`
}

func (r *ImportRow) Valid() bool {
	return len(r.Errors) == 0
}

// ImportError is a file- or row-scoped diagnostic. Row 0 means the error
// applies to the file as a whole (unparsable content, missing symbol column).
type ImportError struct {
	Row     int    `bson:"row" json:"row"`
	Message string `bson:"message" json:"message"`
}

// CSVImport is the server-tracked unit of work behind the two-phase import
// protocol: upload creates it, confirm consumes it.
type CSVImport struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ImportID      string             `bson:"import_id" json:"import_id"`
	PortfolioID   primitive.ObjectID `bson:"portfolio_id" json:"portfolio_id"`
	UserID        string             `bson:"user_id" json:"-"`
	Filename      string             `bson:"filename" json:"filename"`
	Status        string             `bson:"status" json:"status"`
	ColumnMapping map[string]int     `bson:"column_mapping" json:"column_mapping"`
	TotalRows     int                `bson:"total_rows" json:"total_rows"`
	ValidRows     int                `bson:"valid_rows" json:"valid_rows"`
	ErrorRows     int                `bson:"error_rows" json:"error_rows"`
	Rows          []ImportRow        `bson:"rows" json:"-"`
	FileErrors    []ImportError      `bson:"file_errors,omitempty" json:"-"`
	CreatedCount  int                `bson:"created_count" json:"created_positions"`
	ImportedAt    time.Time          `bson:"imported_at" json:"imported_at"`
	ExpiresAt     time.Time          `bson:"expires_at" json:"expires_at"`
}

// ImportPreview is the wire shape returned from an upload. Errors flattens
// file-level diagnostics and every row error, while SampleData is bounded to
// the first PreviewSampleSize rows for display.
type ImportPreview struct {
	TotalRows     int            `json:"total_rows"`
	ValidRows     int            `json:"valid_rows"`
	ErrorRows     int            `json:"error_rows"`
	ColumnMapping map[string]int `json:"column_mapping"`
	Errors        []ImportError  `json:"errors"`
	SampleData    []ImportRow    `json:"sample_data"`
}

// Preview assembles the preview payload for this import.
func (imp *CSVImport) Preview() ImportPreview {
	preview := ImportPreview{
		TotalRows:     imp.TotalRows,
		ValidRows:     imp.ValidRows,
		ErrorRows:     imp.ErrorRows,
		ColumnMapping: imp.ColumnMapping,
		Errors:        []ImportError{},
		SampleData:    []ImportRow{},
	}

	preview.Errors = append(preview.Errors, imp.FileErrors...)
	for _, row := range imp.Rows {
		for _, msg := range row.Errors {
			preview.Errors = append(preview.Errors, ImportError{Row: row.RowNumber, Message: msg})
		}
	}

	sample := imp.Rows
	if len(sample) > PreviewSampleSize {
		sample = sample[:PreviewSampleSize]
	}
	preview.SampleData = append(preview.SampleData, sample...)

	return preview
}

func (imp *CSVImport) Expired(now time.Time) bool {
	return now.After(imp.ExpiresAt)
}

package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for lookups and the one-shot import protocol.
var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrImportNotFound    = errors.New("import not found")
	ErrImportConsumed    = errors.New("import already confirmed")
	ErrImportExpired     = errors.New("import expired, upload the file again")
)

// ValidationError marks input the caller can fix without a retry loop:
// non-positive quantities, unknown symbols, files that fail the upload guards.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientQuantityError rejects a sell that exceeds the held quantity.
type InsufficientQuantityError struct {
	Have decimal.Decimal
	Want decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity: have %s, want to sell %s", e.Have, e.Want)
}

// PriceUnavailableError rejects a sell when no sale price was given and the
// stock has no current price to fall back on.
type PriceUnavailableError struct {
	Symbol string
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("no price available for %s: provide a sell price or refresh quotes", e.Symbol)
}

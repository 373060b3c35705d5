package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplySell validates a sale against the held quantity and returns the
// remaining quantity plus the cash proceeds. It mutates nothing; callers
// persist only when it succeeds, so a rejected sell leaves state untouched.
func ApplySell(held, sellQuantity, sellPrice decimal.Decimal) (remaining, proceeds decimal.Decimal, err error) {
	if sellQuantity.Sign() <= 0 {
		return held, decimal.Zero, validationErrorf("sell quantity must be greater than 0")
	}
	if sellQuantity.GreaterThan(held) {
		return held, decimal.Zero, &InsufficientQuantityError{Have: held, Want: sellQuantity}
	}
	return held.Sub(sellQuantity), sellQuantity.Mul(sellPrice), nil
}

// MergeLots combines an existing position with a newly added lot of the same
// stock: quantities sum, the purchase price becomes the weighted average, and
// the earlier purchase date wins.
func MergeLots(
	existingQty, existingPrice decimal.Decimal, existingDate time.Time,
	newQty, newPrice decimal.Decimal, newDate time.Time,
) (quantity, price decimal.Decimal, date time.Time) {
	quantity = existingQty.Add(newQty)

	if quantity.Sign() > 0 {
		totalCost := existingQty.Mul(existingPrice).Add(newQty.Mul(newPrice))
		price = totalCost.Div(quantity)
	} else {
		price = decimal.Zero
	}

	date = existingDate
	if newDate.Before(existingDate) {
		date = newDate
	}
	return quantity, price, date
}

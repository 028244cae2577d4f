package orders

import (
	"github.com/shopspring/decimal"

	"github.com/safar/shop-api/internal/models"
)

// PriceSource decides where line item unit prices come from.
type PriceSource string

const (
	// PriceFromRequest keeps the caller's unit price and falls back to the
	// catalog only when none was sent.
	PriceFromRequest PriceSource = "request"
	// PriceFromCatalog always uses the product's current price.
	PriceFromCatalog PriceSource = "catalog"
)

// Total sums quantity × price without rounding. The result is stored as is,
// so an order's total always equals the sum of its line items.
func Total(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

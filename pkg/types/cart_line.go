package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is the per-product snapshot frozen into an order at checkout.
// Price and name are copied from the product so later catalog edits cannot
// rewrite order history.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

// Subtotal returns unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
}

// SumCartLines totals the given lines in major currency units.
func SumCartLines(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

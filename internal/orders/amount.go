package orders

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/webloom/storefront-backend/pkg/errors"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to integer minor units, rounding
// half away from zero: 19.999 -> 2000, 0.125 -> 13. The checkout flow derives
// the gateway charge from the order total through this single path.
func ToMinorUnits(major decimal.Decimal) (int64, error) {
	if !major.IsPositive() {
		return 0, pkgerrors.New(pkgerrors.CodeInvalidAmount, "amount must be positive").
			WithDetails(map[string]any{"amount": major.String()})
	}
	return major.Mul(minorUnitsPerMajor).Round(0).IntPart(), nil
}

package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/pkg/erp"
)

// ResolveUnitCost applies the cost policy for a single line. Only quantity
// increases carry a cost. A nonzero remote average cost means the remote
// system can value the increase itself, so the payload hint is passed
// through verbatim. Otherwise the last purchase price at the location, then
// on the item, then a nonzero hint are tried in order. A nil return means
// the submission omits the cost and the remote default applies.
func ResolveUnitCost(quantityDelta int, loc *erp.LocationCost, itemLastPurchase decimal.Decimal, costHint *decimal.Decimal) *decimal.Decimal {
	if quantityDelta <= 0 {
		return nil
	}
	if loc != nil && !loc.AverageCost.IsZero() {
		return copyDecimal(costHint)
	}
	if loc != nil && !loc.LastPurchasePrice.IsZero() {
		v := loc.LastPurchasePrice
		return &v
	}
	if !itemLastPurchase.IsZero() {
		v := itemLastPurchase
		return &v
	}
	if costHint != nil && !costHint.IsZero() {
		return copyDecimal(costHint)
	}
	return nil
}

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

package enums

// ReferenceKind namespaces external reference records. The remote system
// stores sales adjustments, transfer orders and plain adjustments under the
// same record shape, so the kind is the only thing that disambiguates them.
type ReferenceKind string

const (
	ReferenceKindProduct                  ReferenceKind = "product"
	ReferenceKindInventoryAdjustment      ReferenceKind = "inventory_adjustment"
	ReferenceKindSalesInventoryAdjustment ReferenceKind = "sales_inventory_adjustment"
	ReferenceKindTransferOrder            ReferenceKind = "transfer_order"
)

var validReferenceKinds = []ReferenceKind{
	ReferenceKindProduct,
	ReferenceKindInventoryAdjustment,
	ReferenceKindSalesInventoryAdjustment,
	ReferenceKindTransferOrder,
}

// IsValid reports whether the value matches a canonical reference kind.
func (k ReferenceKind) IsValid() bool {
	for _, candidate := range validReferenceKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

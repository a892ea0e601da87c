package erp

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/pkg/enums"
)

// CatalogItem is the remote system's view of an inventory item, including
// the per-location cost snapshot used during cost resolution.
type CatalogItem struct {
	InternalID        string
	SKU               string
	Description       string
	LastPurchasePrice decimal.Decimal
	Locations         []LocationCost
}

// LocationCost carries the cost figures the remote ledger tracks per location.
type LocationCost struct {
	LocationID        string
	AverageCost       decimal.Decimal
	LastPurchasePrice decimal.Decimal
}

// CostAtLocation returns the snapshot for the given location, if the item
// carries one.
func (i *CatalogItem) CostAtLocation(locationID string) (LocationCost, bool) {
	if i == nil {
		return LocationCost{}, false
	}
	for _, loc := range i.Locations {
		if loc.LocationID == locationID {
			return loc, true
		}
	}
	return LocationCost{}, false
}

// RemoteNotice is one graded message attached to a remote response.
type RemoteNotice struct {
	Severity enums.NoticeSeverity `json:"severity"`
	Message  string               `json:"message"`
}

// SubmissionOutcome is the classified result of a remote write.
// Status is failed iff at least one notice carries error severity.
type SubmissionOutcome struct {
	Status   enums.SubmissionStatus
	RemoteID string
	Notices  []RemoteNotice
}

// Failed reports whether any notice has error severity.
func (o *SubmissionOutcome) Failed() bool {
	if o == nil {
		return true
	}
	return o.Status == enums.SubmissionStatusFailed
}

// ErrorMessages returns the messages of all error-severity notices.
func (o *SubmissionOutcome) ErrorMessages() []string {
	if o == nil {
		return nil
	}
	var msgs []string
	for _, n := range o.Notices {
		if n.Severity == enums.NoticeSeverityError {
			msgs = append(msgs, n.Message)
		}
	}
	return msgs
}

// WarningMessages returns the messages of all warn-severity notices.
func (o *SubmissionOutcome) WarningMessages() []string {
	if o == nil {
		return nil
	}
	var msgs []string
	for _, n := range o.Notices {
		if n.Severity == enums.NoticeSeverityWarn {
			msgs = append(msgs, n.Message)
		}
	}
	return msgs
}

// AdjustmentHeader is the header of an inventory adjustment submission.
type AdjustmentHeader struct {
	ExternalID   string    `json:"external_id"`
	LocationID   string    `json:"location_id"`
	AccountID    string    `json:"account_id"`
	DepartmentID string    `json:"department_id,omitempty"`
	Memo         string    `json:"memo,omitempty"`
	Date         time.Time `json:"tran_date"`
}

// AdjustmentLine is one sequenced quantity change within a submission.
// UnitCost is only meaningful on increases and stays nil otherwise.
type AdjustmentLine struct {
	ItemID        string           `json:"item_id"`
	Line          int              `json:"line"`
	QuantityDelta int              `json:"adjust_qty_by"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	LocationID    string           `json:"location_id"`
}

// ItemUpsert carries the fields the bridge maintains on a remote catalog item.
type ItemUpsert struct {
	SKU              string          `json:"sku"`
	ExternalID       string          `json:"external_id"`
	Description      string          `json:"purchase_description"`
	StockDescription string          `json:"stock_description"`
	VendorName       string          `json:"vendor_name"`
	TaxScheduleID    string          `json:"tax_schedule_id,omitempty"`
	ImageURL         string          `json:"image_url,omitempty"`
	Cost             decimal.Decimal `json:"cost"`
}

package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/pkg/enums"
	"github.com/retailops/erpbridge/pkg/erp"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
)

// Flow names the business event behind an adjustment. The remote system
// stores all three under the same record shape, so the flow is decided once
// at ingestion and drives which reference kind the mapping is filed under.
type Flow string

const (
	FlowInventory Flow = "inventory"
	FlowSales     Flow = "sales"
	FlowTransfer  Flow = "transfer"
)

// ReferenceKind maps the flow onto the reference store namespace.
func (f Flow) ReferenceKind() enums.ReferenceKind {
	switch f {
	case FlowSales:
		return enums.ReferenceKindSalesInventoryAdjustment
	case FlowTransfer:
		return enums.ReferenceKindTransferOrder
	default:
		return enums.ReferenceKindInventoryAdjustment
	}
}

// FlowFromMarkers selects the flow from the payload markers. Exactly one
// marker may be set; neither means a plain inventory adjustment.
func FlowFromMarkers(salesMarker, transferMarker bool) (Flow, error) {
	if salesMarker && transferMarker {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event carries both sales and transfer markers")
	}
	if salesMarker {
		return FlowSales, nil
	}
	if transferMarker {
		return FlowTransfer, nil
	}
	return FlowInventory, nil
}

// LineItemRequest is one requested quantity change from the inbound payload.
type LineItemRequest struct {
	SKU             string
	RemoteProductID string
	QuantityDelta   int
	CostHint        *decimal.Decimal
}

// ResolvedLineItem is a sequenced, catalog-resolved adjustment line ready
// for submission. UnitCost is populated only for increases.
type ResolvedLineItem struct {
	RemoteProductID string
	LineNumber      int
	QuantityDelta   int
	UnitCost        *decimal.Decimal
}

// AdjustmentEvent is the unit of work. It is constructed from an inbound
// payload and immutable afterwards.
type AdjustmentEvent struct {
	AdjustmentID string
	LocationID   string
	Date         time.Time
	GLAccount    string
	Department   string
	Memo         string
	Identifier   string
	Flow         Flow
	Lines        []LineItemRequest
}

// ReferenceKey returns the local key the reference record is filed under.
// Sales adjustments key by the platform identifier when one is supplied;
// everything else keys by the adjustment id.
func (e *AdjustmentEvent) ReferenceKey() string {
	if e.Flow == FlowSales && e.Identifier != "" {
		return e.Identifier
	}
	return e.AdjustmentID
}

// Validate checks the header fields required before submission.
func (e *AdjustmentEvent) Validate() error {
	if e.AdjustmentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
	}
	if e.LocationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "location missing, sync platform and remote locations")
	}
	if e.GLAccount == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "gl account is required")
	}
	return nil
}

// Header builds the remote submission header for the event.
func (e *AdjustmentEvent) Header() erp.AdjustmentHeader {
	return erp.AdjustmentHeader{
		ExternalID:   e.AdjustmentID,
		LocationID:   e.LocationID,
		AccountID:    e.GLAccount,
		DepartmentID: e.Department,
		Memo:         e.Memo,
		Date:         e.Date,
	}
}

package reconcile

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/internal/references"
	"github.com/retailops/erpbridge/pkg/enums"
	"github.com/retailops/erpbridge/pkg/erp"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
)

// CatalogLookup is the slice of the remote client the batch builder needs.
type CatalogLookup interface {
	FindItemBySKU(ctx context.Context, sku string) (*erp.CatalogItem, bool, error)
	FindItemByID(ctx context.Context, internalID string) (*erp.CatalogItem, bool, error)
}

// BatchBuilder turns requested line items into resolved submission lines.
// Zero-delta lines are dropped before numbering, so line numbers are dense
// and start at one.
type BatchBuilder struct {
	catalog CatalogLookup
	refs    references.Store
	logg    *logger.Logger
}

func NewBatchBuilder(catalog CatalogLookup, refs references.Store, logg *logger.Logger) (*BatchBuilder, error) {
	if catalog == nil {
		return nil, fmt.Errorf("reconcile: catalog lookup is nil")
	}
	if refs == nil {
		return nil, fmt.Errorf("reconcile: reference store is nil")
	}
	if logg == nil {
		return nil, fmt.Errorf("reconcile: logger is nil")
	}
	return &BatchBuilder{catalog: catalog, refs: refs, logg: logg}, nil
}

// Build resolves every retained line of the event. An unresolvable SKU
// aborts the whole batch so partial adjustments are never submitted.
func (b *BatchBuilder) Build(ctx context.Context, event *AdjustmentEvent) ([]ResolvedLineItem, error) {
	var resolved []ResolvedLineItem
	line := 0
	for _, req := range event.Lines {
		if req.QuantityDelta == 0 {
			continue
		}
		line++

		item, productID, err := b.resolveProduct(ctx, req)
		if err != nil {
			return nil, err
		}

		var unitCost *decimal.Decimal
		if req.QuantityDelta > 0 {
			if item == nil {
				item, err = b.fetchItem(ctx, productID)
				if err != nil {
					return nil, err
				}
			}
			unitCost = b.costFor(item, event.LocationID, req)
		}

		resolved = append(resolved, ResolvedLineItem{
			RemoteProductID: productID,
			LineNumber:      line,
			QuantityDelta:   req.QuantityDelta,
			UnitCost:        unitCost,
		})
	}
	return resolved, nil
}

// resolveProduct returns the remote product id for the line, looking the SKU
// up in the remote catalog when the payload does not carry one. The catalog
// item is returned alongside when a lookup was needed, so cost resolution
// can reuse it.
func (b *BatchBuilder) resolveProduct(ctx context.Context, req LineItemRequest) (*erp.CatalogItem, string, error) {
	if req.RemoteProductID != "" {
		return nil, req.RemoteProductID, nil
	}
	item, found, err := b.catalog.FindItemBySKU(ctx, req.SKU)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", pkgerrors.New(pkgerrors.CodeResolution,
			fmt.Sprintf("item %q is missing from the remote catalog", req.SKU))
	}
	if err := b.refs.Record(ctx, enums.ReferenceKindProduct, req.SKU, item.InternalID, map[string]string{
		"sku":         req.SKU,
		"description": item.Description,
	}); err != nil {
		return nil, "", err
	}
	return item, item.InternalID, nil
}

func (b *BatchBuilder) fetchItem(ctx context.Context, internalID string) (*erp.CatalogItem, error) {
	item, found, err := b.catalog.FindItemByID(ctx, internalID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeResolution,
			fmt.Sprintf("item %q is missing from the remote catalog", internalID))
	}
	return item, nil
}

func (b *BatchBuilder) costFor(item *erp.CatalogItem, locationID string, req LineItemRequest) *decimal.Decimal {
	var loc *erp.LocationCost
	if snapshot, ok := item.CostAtLocation(locationID); ok {
		loc = &snapshot
	}
	return ResolveUnitCost(req.QuantityDelta, loc, item.LastPurchasePrice, req.CostHint)
}

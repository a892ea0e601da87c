// Package catalog mirrors platform product variants into the remote
// catalog and maintains the product reference mappings the reconciler
// relies on for SKU resolution.
package catalog

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

// CatalogClient is the slice of the remote client the sync service needs.
type CatalogClient interface {
	FindItemBySKU(ctx context.Context, sku string) (*erp.CatalogItem, bool, error)
	FindItemByID(ctx context.Context, internalID string) (*erp.CatalogItem, bool, error)
	UpsertItem(ctx context.Context, internalID string, input erp.ItemUpsert) (*erp.SubmissionOutcome, error)
}

// VariantInput is one platform product variant to mirror.
type VariantInput struct {
	SKU              string
	Description      string
	StockDescription string
	VendorName       string
	TaxScheduleID    string
	ImageURL         string
	Cost             decimal.Decimal
}

// SyncResult reports what a variant sync did.
type SyncResult struct {
	SKU      string
	RemoteID string
	Created  bool
	Updated  bool
}

// Service keeps remote catalog items aligned with platform variants.
type Service interface {
	SyncVariant(ctx context.Context, variant VariantInput) (*SyncResult, error)
	SyncVariants(ctx context.Context, variants []VariantInput) ([]SyncResult, error)
}

type service struct {
	client CatalogClient
	refs   references.Store
	logg   *logger.Logger
}

func NewService(client CatalogClient, refs references.Store, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("catalog: remote client is nil")
	}
	if refs == nil {
		return nil, fmt.Errorf("catalog: reference store is nil")
	}
	if logg == nil {
		return nil, fmt.Errorf("catalog: logger is nil")
	}
	return &service{client: client, refs: refs, logg: logg}, nil
}

// SyncVariant finds the remote item for the variant, creating it when the
// SKU is unknown and updating it when the description drifted. The product
// reference mapping is refreshed on every successful sync.
func (s *service) SyncVariant(ctx context.Context, variant VariantInput) (*SyncResult, error) {
	if variant.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant sku is required")
	}
	ctx = s.logg.WithField(ctx, "sku", variant.SKU)

	item, found, err := s.locate(ctx, variant.SKU)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{SKU: variant.SKU}
	switch {
	case !found:
		outcome, err := s.client.UpsertItem(ctx, "", s.upsertInput(variant))
		if err != nil {
			return nil, err
		}
		if outcome.Failed() {
			return nil, upsertError(variant.SKU, outcome)
		}
		result.RemoteID = outcome.RemoteID
		result.Created = true
		s.logg.Info(ctx, "created remote catalog item")
	case s.drifted(item, variant):
		outcome, err := s.client.UpsertItem(ctx, item.InternalID, s.upsertInput(variant))
		if err != nil {
			return nil, err
		}
		if outcome.Failed() {
			return nil, upsertError(variant.SKU, outcome)
		}
		result.RemoteID = item.InternalID
		result.Updated = true
		s.logg.Info(ctx, "updated remote catalog item")
	default:
		result.RemoteID = item.InternalID
	}

	if err := s.refs.Record(ctx, enums.ReferenceKindProduct, variant.SKU, result.RemoteID, map[string]string{
		"sku":         variant.SKU,
		"description": variant.Description,
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// SyncVariants syncs variants in order, stopping at the first failure so a
// retry resumes from the failed variant.
func (s *service) SyncVariants(ctx context.Context, variants []VariantInput) ([]SyncResult, error) {
	results := make([]SyncResult, 0, len(variants))
	for _, variant := range variants {
		result, err := s.SyncVariant(ctx, variant)
		if err != nil {
			return results, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// locate prefers the recorded reference mapping and falls back to a SKU
// search. A stale mapping whose remote item no longer exists is treated as
// a miss so the variant is recreated.
func (s *service) locate(ctx context.Context, sku string) (*erp.CatalogItem, bool, error) {
	ref, ok, err := s.refs.Lookup(ctx, enums.ReferenceKindProduct, sku)
	if err != nil {
		return nil, false, err
	}
	if ok {
		item, found, err := s.client.FindItemByID(ctx, ref.RemoteID)
		if err != nil {
			return nil, false, err
		}
		if found {
			return item, true, nil
		}
	}
	return s.client.FindItemBySKU(ctx, sku)
}

func (s *service) drifted(item *erp.CatalogItem, variant VariantInput) bool {
	return item.Description != variant.Description || item.SKU != variant.SKU
}

func (s *service) upsertInput(variant VariantInput) erp.ItemUpsert {
	return erp.ItemUpsert{
		SKU:              variant.SKU,
		ExternalID:       variant.SKU,
		Description:      variant.Description,
		StockDescription: variant.StockDescription,
		VendorName:       variant.VendorName,
		TaxScheduleID:    variant.TaxScheduleID,
		ImageURL:         variant.ImageURL,
		Cost:             variant.Cost,
	}
}

func upsertError(sku string, outcome *erp.SubmissionOutcome) error {
	combined := "remote rejected catalog item"
	if msgs := outcome.ErrorMessages(); len(msgs) > 0 {
		combined = msgs[0]
	}
	return pkgerrors.New(pkgerrors.CodeSubmission, fmt.Sprintf("item %q: %s", sku, combined))
}

package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/api/responses"
	"github.com/retailops/erpbridge/api/validators"
	"github.com/retailops/erpbridge/internal/catalog"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
)

type productSyncPayload struct {
	Variants []variantPayload `json:"variants" validate:"required,min=1,dive"`
}

type variantPayload struct {
	SKU              string           `json:"sku" validate:"required"`
	Description      string           `json:"description" validate:"required"`
	StockDescription string           `json:"stock_description,omitempty"`
	VendorName       string           `json:"vendor_name,omitempty"`
	TaxScheduleID    string           `json:"tax_schedule_id,omitempty"`
	ImageURL         string           `json:"image_url,omitempty"`
	Cost             *decimal.Decimal `json:"cost,omitempty"`
}

type productSyncResponse struct {
	Synced []variantResult `json:"synced"`
}

type variantResult struct {
	SKU      string `json:"sku"`
	RemoteID string `json:"remote_id"`
	Created  bool   `json:"created"`
	Updated  bool   `json:"updated"`
}

// SyncProducts mirrors the submitted product variants into the remote catalog.
func SyncProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload productSyncPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variants := make([]catalog.VariantInput, 0, len(payload.Variants))
		for _, v := range payload.Variants {
			input := catalog.VariantInput{
				SKU:              v.SKU,
				Description:      v.Description,
				StockDescription: v.StockDescription,
				VendorName:       v.VendorName,
				TaxScheduleID:    v.TaxScheduleID,
				ImageURL:         v.ImageURL,
			}
			if v.Cost != nil {
				input.Cost = *v.Cost
			}
			variants = append(variants, input)
		}

		results, err := svc.SyncVariants(ctx, variants)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		synced := make([]variantResult, 0, len(results))
		for _, res := range results {
			synced = append(synced, variantResult{
				SKU:      res.SKU,
				RemoteID: res.RemoteID,
				Created:  res.Created,
				Updated:  res.Updated,
			})
		}
		responses.WriteSuccess(w, productSyncResponse{Synced: synced})
	}
}

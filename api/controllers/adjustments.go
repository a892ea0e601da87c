package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/api/responses"
	"github.com/retailops/erpbridge/api/validators"
	"github.com/retailops/erpbridge/internal/reconcile"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
)

// eventGuard is the ingress dedupe in front of the reconciler.
type eventGuard interface {
	CheckAndMark(ctx context.Context, flow, eventID string) (bool, error)
	Release(ctx context.Context, flow, eventID string) error
}

type adjustmentPayload struct {
	AdjustmentID            string             `json:"adjustment_id" validate:"required"`
	Location                string             `json:"location" validate:"required"`
	AdjustmentAccountNumber string             `json:"adjustment_account_number" validate:"required"`
	Department              string             `json:"department,omitempty"`
	Memo                    string             `json:"memo,omitempty"`
	Date                    string             `json:"date,omitempty"`
	SalesInvAdjustment      *salesMarker       `json:"sales_inv_adjustment,omitempty"`
	TransferOrder           *transferMarker    `json:"transfer_order,omitempty"`
	LineItems               []lineItemPayload  `json:"line_items" validate:"required,min=1,dive"`
}

type salesMarker struct {
	Identifier string `json:"identifier" validate:"required"`
}

type transferMarker struct {
	OrderID string `json:"order_id,omitempty"`
}

type lineItemPayload struct {
	SKU       string           `json:"sku"`
	ProductID string           `json:"product_id,omitempty"`
	Quantity  int              `json:"quantity"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
}

type adjustmentResponse struct {
	Outcome  string `json:"outcome"`
	RemoteID string `json:"remote_id,omitempty"`
}

// SubmitAdjustment accepts one adjustment event, deduplicates redeliveries,
// and drives it through the reconciler.
func SubmitAdjustment(svc reconcile.Reconciler, guard eventGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}

		var payload adjustmentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		event, err := payload.toEvent()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if guard != nil {
			seen, err := guard.CheckAndMark(ctx, string(event.Flow), event.ReferenceKey())
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event dedupe"))
				return
			}
			if seen {
				if logg != nil {
					logg.Info(logg.WithAdjustmentID(ctx, event.AdjustmentID), "duplicate delivery dropped")
				}
				responses.WriteSuccess(w, adjustmentResponse{Outcome: "duplicate_delivery"})
				return
			}
		}

		result, err := svc.Reconcile(ctx, event)
		if err != nil {
			if guard != nil {
				_ = guard.Release(ctx, string(event.Flow), event.ReferenceKey())
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Outcome == reconcile.OutcomeRecorded {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, adjustmentResponse{
			Outcome:  string(result.Outcome),
			RemoteID: result.RemoteID,
		})
	}
}

func (p *adjustmentPayload) toEvent() (*reconcile.AdjustmentEvent, error) {
	flow, err := reconcile.FlowFromMarkers(p.SalesInvAdjustment != nil, p.TransferOrder != nil)
	if err != nil {
		return nil, err
	}

	date, err := parseEventDate(p.Date)
	if err != nil {
		return nil, err
	}

	event := &reconcile.AdjustmentEvent{
		AdjustmentID: p.AdjustmentID,
		LocationID:   p.Location,
		GLAccount:    p.AdjustmentAccountNumber,
		Department:   p.Department,
		Memo:         p.Memo,
		Date:         date,
		Flow:         flow,
	}
	if p.SalesInvAdjustment != nil {
		event.Identifier = p.SalesInvAdjustment.Identifier
	}

	for _, item := range p.LineItems {
		if item.SKU == "" && item.ProductID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item needs a sku or a product_id")
		}
		event.Lines = append(event.Lines, reconcile.LineItemRequest{
			SKU:             item.SKU,
			RemoteProductID: item.ProductID,
			QuantityDelta:   item.Quantity,
			CostHint:        item.Cost,
		})
	}
	return event, nil
}

func parseEventDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must be RFC3339 or YYYY-MM-DD")
}

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/retailops/erpbridge/internal/reconcile"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
)

type fakeReconciler struct {
	calls  int
	last   *reconcile.AdjustmentEvent
	result *reconcile.Result
	err    error
}

func (f *fakeReconciler) Reconcile(_ context.Context, event *reconcile.AdjustmentEvent) (*reconcile.Result, error) {
	f.calls++
	f.last = event
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeGuard struct {
	seen     map[string]bool
	marks    int
	releases int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{seen: map[string]bool{}}
}

func (g *fakeGuard) CheckAndMark(_ context.Context, flow, eventID string) (bool, error) {
	g.marks++
	key := flow + "|" + eventID
	if g.seen[key] {
		return true, nil
	}
	g.seen[key] = true
	return false, nil
}

func (g *fakeGuard) Release(_ context.Context, flow, eventID string) error {
	g.releases++
	delete(g.seen, flow+"|"+eventID)
	return nil
}

func postAdjustment(t *testing.T, handler http.HandlerFunc, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/adjustments", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func validPayload() map[string]any {
	return map[string]any{
		"adjustment_id":             "adj-1",
		"location":                  "7",
		"adjustment_account_number": "5000",
		"memo":                      "cycle count",
		"line_items": []map[string]any{
			{"sku": "SKU-A", "quantity": 3},
		},
	}
}

func TestSubmitAdjustmentRecorded(t *testing.T) {
	svc := &fakeReconciler{result: &reconcile.Result{Outcome: reconcile.OutcomeRecorded, RemoteID: "rem-1"}}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	rec := postAdjustment(t, handler, validPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", svc.calls)
	}
	if svc.last.Flow != reconcile.FlowInventory {
		t.Fatalf("expected the plain inventory flow, got %q", svc.last.Flow)
	}
	if svc.last.GLAccount != "5000" || svc.last.LocationID != "7" {
		t.Fatalf("unexpected event %+v", svc.last)
	}
}

func TestSubmitAdjustmentAlreadyAppliedReturns200(t *testing.T) {
	svc := &fakeReconciler{result: &reconcile.Result{Outcome: reconcile.OutcomeAlreadyApplied, RemoteID: "rem-1"}}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	rec := postAdjustment(t, handler, validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSubmitAdjustmentDuplicateDeliveryDropped(t *testing.T) {
	svc := &fakeReconciler{result: &reconcile.Result{Outcome: reconcile.OutcomeRecorded, RemoteID: "rem-1"}}
	guard := newFakeGuard()
	handler := SubmitAdjustment(svc, guard, nil)

	if rec := postAdjustment(t, handler, validPayload()); rec.Code != http.StatusCreated {
		t.Fatalf("first delivery failed: %d", rec.Code)
	}
	rec := postAdjustment(t, handler, validPayload())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("duplicate delivery must not reach the reconciler, got %d calls", svc.calls)
	}
}

func TestSubmitAdjustmentFailureReleasesGuard(t *testing.T) {
	svc := &fakeReconciler{err: pkgerrors.New(pkgerrors.CodeSubmission, "period is locked")}
	guard := newFakeGuard()
	handler := SubmitAdjustment(svc, guard, nil)

	rec := postAdjustment(t, handler, validPayload())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d (%s)", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Error struct {
			Retryable bool `json:"retryable"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if !envelope.Error.Retryable {
		t.Fatalf("a remote rejection must be marked retryable, got %s", rec.Body.String())
	}
	if guard.releases != 1 {
		t.Fatalf("expected the guard claim to be released, got %d", guard.releases)
	}

	svc.err = nil
	svc.result = &reconcile.Result{Outcome: reconcile.OutcomeRecorded, RemoteID: "rem-2"}
	if rec := postAdjustment(t, handler, validPayload()); rec.Code != http.StatusCreated {
		t.Fatalf("retry after failure should succeed, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSubmitAdjustmentSalesMarkerSetsFlowAndIdentifier(t *testing.T) {
	svc := &fakeReconciler{result: &reconcile.Result{Outcome: reconcile.OutcomeRecorded, RemoteID: "rem-1"}}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	payload := validPayload()
	payload["sales_inv_adjustment"] = map[string]any{"identifier": "order-9"}

	if rec := postAdjustment(t, handler, payload); rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.last.Flow != reconcile.FlowSales || svc.last.Identifier != "order-9" {
		t.Fatalf("unexpected event %+v", svc.last)
	}
}

func TestSubmitAdjustmentBothMarkersRejected(t *testing.T) {
	svc := &fakeReconciler{}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	payload := validPayload()
	payload["sales_inv_adjustment"] = map[string]any{"identifier": "order-9"}
	payload["transfer_order"] = map[string]any{"order_id": "to-1"}

	rec := postAdjustment(t, handler, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Fatal("invalid payloads must not reach the reconciler")
	}
}

func TestSubmitAdjustmentMissingFieldsRejected(t *testing.T) {
	svc := &fakeReconciler{}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	payload := validPayload()
	delete(payload, "adjustment_account_number")

	rec := postAdjustment(t, handler, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestSubmitAdjustmentLineWithoutSKUOrProductRejected(t *testing.T) {
	svc := &fakeReconciler{}
	handler := SubmitAdjustment(svc, newFakeGuard(), nil)

	payload := validPayload()
	payload["line_items"] = []map[string]any{{"quantity": 2}}

	rec := postAdjustment(t, handler, payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

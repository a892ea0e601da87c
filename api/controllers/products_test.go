package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/retailops/erpbridge/internal/catalog"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
)

type fakeCatalogService struct {
	calls int
	last  []catalog.VariantInput
	err   error
}

func (f *fakeCatalogService) SyncVariant(ctx context.Context, variant catalog.VariantInput) (*catalog.SyncResult, error) {
	results, err := f.SyncVariants(ctx, []catalog.VariantInput{variant})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (f *fakeCatalogService) SyncVariants(_ context.Context, variants []catalog.VariantInput) ([]catalog.SyncResult, error) {
	f.calls++
	f.last = variants
	if f.err != nil {
		return nil, f.err
	}
	results := make([]catalog.SyncResult, 0, len(variants))
	for _, v := range variants {
		results = append(results, catalog.SyncResult{SKU: v.SKU, RemoteID: "rem-" + v.SKU, Created: true})
	}
	return results, nil
}

func postProducts(t *testing.T, handler http.HandlerFunc, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/sync", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSyncProducts(t *testing.T) {
	svc := &fakeCatalogService{}
	handler := SyncProducts(svc, nil)

	rec := postProducts(t, handler, map[string]any{
		"variants": []map[string]any{
			{"sku": "SKU-A", "description": "widget", "cost": "4.00"},
			{"sku": "SKU-B", "description": "gadget"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 1 || len(svc.last) != 2 {
		t.Fatalf("expected one sync of two variants, got calls=%d variants=%d", svc.calls, len(svc.last))
	}
	if svc.last[0].Cost.String() != "4" {
		t.Fatalf("unexpected cost %s", svc.last[0].Cost)
	}
}

func TestSyncProductsEmptyVariantsRejected(t *testing.T) {
	svc := &fakeCatalogService{}
	handler := SyncProducts(svc, nil)

	rec := postProducts(t, handler, map[string]any{"variants": []map[string]any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Fatal("invalid payloads must not reach the service")
	}
}

func TestSyncProductsServiceFailure(t *testing.T) {
	svc := &fakeCatalogService{err: pkgerrors.New(pkgerrors.CodeSubmission, "tax schedule is invalid")}
	handler := SyncProducts(svc, nil)

	rec := postProducts(t, handler, map[string]any{
		"variants": []map[string]any{{"sku": "SKU-A", "description": "widget"}},
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d (%s)", rec.Code, rec.Body.String())
	}
}

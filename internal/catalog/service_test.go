package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/retailops/erpbridge/pkg/db/models"
	"github.com/retailops/erpbridge/pkg/enums"
	"github.com/retailops/erpbridge/pkg/erp"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
)

type fakeStore struct {
	entries map[string]string
	records int
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]string{}}
}

func (s *fakeStore) Lookup(_ context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, bool, error) {
	remoteID, ok := s.entries[string(kind)+"|"+localKey]
	if !ok {
		return nil, false, nil
	}
	return &models.ExternalReference{Kind: kind, LocalKey: localKey, RemoteID: remoteID}, true, nil
}

func (s *fakeStore) Record(_ context.Context, kind enums.ReferenceKind, localKey, remoteID string, _ any) error {
	s.entries[string(kind)+"|"+localKey] = remoteID
	s.records++
	return nil
}

type fakeClient struct {
	bySKU map[string]*erp.CatalogItem
	byID  map[string]*erp.CatalogItem

	upserts      []upsertCall
	upsertResult *erp.SubmissionOutcome
}

type upsertCall struct {
	internalID string
	input      erp.ItemUpsert
}

func newFakeClient() *fakeClient {
	return &fakeClient{bySKU: map[string]*erp.CatalogItem{}, byID: map[string]*erp.CatalogItem{}}
}

func (c *fakeClient) add(item *erp.CatalogItem) {
	c.bySKU[item.SKU] = item
	c.byID[item.InternalID] = item
}

func (c *fakeClient) FindItemBySKU(_ context.Context, sku string) (*erp.CatalogItem, bool, error) {
	item, ok := c.bySKU[sku]
	return item, ok, nil
}

func (c *fakeClient) FindItemByID(_ context.Context, internalID string) (*erp.CatalogItem, bool, error) {
	item, ok := c.byID[internalID]
	return item, ok, nil
}

func (c *fakeClient) UpsertItem(_ context.Context, internalID string, input erp.ItemUpsert) (*erp.SubmissionOutcome, error) {
	c.upserts = append(c.upserts, upsertCall{internalID: internalID, input: input})
	if c.upsertResult != nil {
		return c.upsertResult, nil
	}
	remoteID := internalID
	if remoteID == "" {
		remoteID = "new-" + input.SKU
	}
	return &erp.SubmissionOutcome{Status: enums.SubmissionStatusCreated, RemoteID: remoteID}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: discardWriter{}})
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestService(t *testing.T, client *fakeClient, store *fakeStore) Service {
	t.Helper()
	svc, err := NewService(client, store, testLogger())
	if err != nil {
		t.Fatalf("building catalog service: %v", err)
	}
	return svc
}

func TestSyncVariantCreatesUnknownSKU(t *testing.T) {
	client := newFakeClient()
	store := newFakeStore()
	svc := newTestService(t, client, store)

	result, err := svc.SyncVariant(context.Background(), VariantInput{
		SKU:         "SKU-A",
		Description: "widget",
		Cost:        decimal.RequireFromString("4.00"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created || result.RemoteID != "new-SKU-A" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(client.upserts) != 1 || client.upserts[0].internalID != "" {
		t.Fatalf("expected one create call, got %+v", client.upserts)
	}
	if store.entries["product|SKU-A"] != "new-SKU-A" {
		t.Fatal("expected a product reference for the created item")
	}
}

func TestSyncVariantUpdatesDriftedDescription(t *testing.T) {
	client := newFakeClient()
	client.add(&erp.CatalogItem{InternalID: "101", SKU: "SKU-A", Description: "old name"})
	svc := newTestService(t, client, newFakeStore())

	result, err := svc.SyncVariant(context.Background(), VariantInput{SKU: "SKU-A", Description: "new name"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Updated || result.RemoteID != "101" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(client.upserts) != 1 || client.upserts[0].internalID != "101" {
		t.Fatalf("expected one update call, got %+v", client.upserts)
	}
}

func TestSyncVariantUnchangedItemSkipsUpsert(t *testing.T) {
	client := newFakeClient()
	client.add(&erp.CatalogItem{InternalID: "101", SKU: "SKU-A", Description: "widget"})
	store := newFakeStore()
	svc := newTestService(t, client, store)

	result, err := svc.SyncVariant(context.Background(), VariantInput{SKU: "SKU-A", Description: "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Created || result.Updated || result.RemoteID != "101" {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(client.upserts) != 0 {
		t.Fatalf("expected no upsert, got %d", len(client.upserts))
	}
	if store.records != 1 {
		t.Fatal("expected the reference mapping to be refreshed")
	}
}

func TestSyncVariantUsesRecordedReferenceFirst(t *testing.T) {
	client := newFakeClient()
	client.byID["101"] = &erp.CatalogItem{InternalID: "101", SKU: "SKU-OLD", Description: "widget"}
	store := newFakeStore()
	store.entries["product|SKU-A"] = "101"
	svc := newTestService(t, client, store)

	result, err := svc.SyncVariant(context.Background(), VariantInput{SKU: "SKU-A", Description: "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RemoteID != "101" {
		t.Fatalf("expected the recorded remote id, got %q", result.RemoteID)
	}
}

func TestSyncVariantStaleReferenceFallsBackToSKU(t *testing.T) {
	client := newFakeClient()
	store := newFakeStore()
	store.entries["product|SKU-A"] = "gone"
	svc := newTestService(t, client, store)

	result, err := svc.SyncVariant(context.Background(), VariantInput{SKU: "SKU-A", Description: "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected recreation after a stale mapping, got %+v", result)
	}
	if store.entries["product|SKU-A"] != "new-SKU-A" {
		t.Fatal("expected the mapping to be repaired")
	}
}

func TestSyncVariantRejectedUpsertFails(t *testing.T) {
	client := newFakeClient()
	client.upsertResult = &erp.SubmissionOutcome{
		Status:  enums.SubmissionStatusFailed,
		Notices: []erp.RemoteNotice{{Severity: enums.NoticeSeverityError, Message: "tax schedule is invalid"}},
	}
	store := newFakeStore()
	svc := newTestService(t, client, store)

	_, err := svc.SyncVariant(context.Background(), VariantInput{SKU: "SKU-A", Description: "widget"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeSubmission) {
		t.Fatalf("expected a submission error, got %v", err)
	}
	if store.records != 0 {
		t.Fatal("a rejected upsert must not write a reference")
	}
}

func TestSyncVariantsStopsAtFirstFailure(t *testing.T) {
	client := newFakeClient()
	client.add(&erp.CatalogItem{InternalID: "101", SKU: "SKU-A", Description: "widget"})
	svc := newTestService(t, client, newFakeStore())

	results, err := svc.SyncVariants(context.Background(), []VariantInput{
		{SKU: "SKU-A", Description: "widget"},
		{SKU: ""},
		{SKU: "SKU-C", Description: "gadget"},
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one completed sync before the failure, got %d", len(results))
	}
}

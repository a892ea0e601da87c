package references

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/retailops/erpbridge/pkg/db/models"
	"github.com/retailops/erpbridge/pkg/enums"
)

type fakeRepository struct {
	upsertFn func(ctx context.Context, ref *models.ExternalReference) error
	findFn   func(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Upsert(ctx context.Context, ref *models.ExternalReference) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, ref)
	}
	return nil
}

func (f *fakeRepository) Find(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, error) {
	if f.findFn != nil {
		return f.findFn(ctx, kind, localKey)
	}
	return nil, nil
}

func TestStoreRecordEncodesMetadata(t *testing.T) {
	repo := &fakeRepository{}
	store, err := NewStore(repo)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}

	var saved *models.ExternalReference
	repo.upsertFn = func(ctx context.Context, ref *models.ExternalReference) error {
		saved = ref
		return nil
	}

	metadata := map[string]string{"description": "warehouse count", "adjustment_id": "adj-7"}
	if err := store.Record(context.Background(), enums.ReferenceKindInventoryAdjustment, "adj-7", "501", metadata); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if saved == nil {
		t.Fatal("expected upsert to be called")
	}
	if saved.RemoteID != "501" || saved.LocalKey != "adj-7" {
		t.Fatalf("unexpected record %+v", saved)
	}
	if len(saved.Metadata) == 0 {
		t.Fatal("expected metadata to be encoded")
	}
}

func TestStoreRecordValidation(t *testing.T) {
	store, err := NewStore(&fakeRepository{})
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
	ctx := context.Background()

	if err := store.Record(ctx, enums.ReferenceKind("bogus"), "k", "r", nil); err == nil {
		t.Fatal("expected error for invalid kind")
	}
	if err := store.Record(ctx, enums.ReferenceKindProduct, "", "r", nil); err == nil {
		t.Fatal("expected error for missing local key")
	}
	if err := store.Record(ctx, enums.ReferenceKindProduct, "k", "", nil); err == nil {
		t.Fatal("expected error for missing remote id")
	}
}

func TestStoreLookupReportsAbsence(t *testing.T) {
	repo := &fakeRepository{}
	store, err := NewStore(repo)
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}

	ref, found, err := store.Lookup(context.Background(), enums.ReferenceKindTransferOrder, "missing")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if found || ref != nil {
		t.Fatal("expected absence to be a clean miss")
	}

	repo.findFn = func(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, error) {
		return &models.ExternalReference{Kind: kind, LocalKey: localKey, RemoteID: "42"}, nil
	}
	ref, found, err = store.Lookup(context.Background(), enums.ReferenceKindTransferOrder, "adj-1")
	if err != nil || !found || ref.RemoteID != "42" {
		t.Fatalf("expected hit, ref=%v found=%v err=%v", ref, found, err)
	}
}

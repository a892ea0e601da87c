package references

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retailops/erpbridge/pkg/db/models"
	"github.com/retailops/erpbridge/pkg/enums"
)

// Repository manages persistence for external reference records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, ref *models.ExternalReference) error
	Find(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reference repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Upsert inserts or overwrites the row for (kind, local_key). The conflict
// target matches the unique index, so concurrent writers converge on a
// single row with last-writer-wins semantics.
func (r *repository) Upsert(ctx context.Context, ref *models.ExternalReference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "local_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"remote_id", "metadata", "updated_at"}),
		}).
		Create(ref).Error
}

// Find returns nil without an error when no row exists; absence is a normal
// outcome for the idempotency check.
func (r *repository) Find(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, error) {
	var ref models.ExternalReference
	err := r.db.WithContext(ctx).
		Where("kind = ? AND local_key = ?", kind, localKey).
		First(&ref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

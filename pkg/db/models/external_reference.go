package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailops/erpbridge/pkg/enums"
)

// ExternalReference maps a local platform key to the identifier the remote
// system of record assigned. At most one row exists per (kind, local_key);
// writes are upserts and nothing in the bridge ever deletes a row.
type ExternalReference struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Kind      enums.ReferenceKind `gorm:"column:kind;type:text;not null;uniqueIndex:idx_external_references_kind_local_key,priority:1"`
	LocalKey  string              `gorm:"column:local_key;not null;uniqueIndex:idx_external_references_kind_local_key,priority:2"`
	RemoteID  string              `gorm:"column:remote_id;not null"`
	Metadata  json.RawMessage     `gorm:"column:metadata"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name used by the goose migrations.
func (ExternalReference) TableName() string { return "external_references" }

// BeforeCreate assigns the primary key client-side so the sqlite test
// driver behaves the same as Postgres.
func (r *ExternalReference) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

package references

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/retailops/erpbridge/pkg/db/models"
	"github.com/retailops/erpbridge/pkg/enums"
)

// Store is the durable mapping from (kind, local key) to the identifier the
// remote system assigned. It is the only durable side effect the
// reconciliation engine produces.
type Store interface {
	Lookup(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, bool, error)
	Record(ctx context.Context, kind enums.ReferenceKind, localKey, remoteID string, metadata any) error
}

type store struct {
	repo Repository
}

// NewStore wires a reference store with the provided repository.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("references repository required")
	}
	return &store{repo: repo}, nil
}

func (s *store) Lookup(ctx context.Context, kind enums.ReferenceKind, localKey string) (*models.ExternalReference, bool, error) {
	if !kind.IsValid() {
		return nil, false, fmt.Errorf("invalid reference kind %q", kind)
	}
	if localKey == "" {
		return nil, false, fmt.Errorf("local key is required")
	}
	ref, err := s.repo.Find(ctx, kind, localKey)
	if err != nil {
		return nil, false, err
	}
	return ref, ref != nil, nil
}

// Record upserts the mapping; calling it twice for the same (kind, localKey)
// overwrites metadata and remote id rather than creating a duplicate.
func (s *store) Record(ctx context.Context, kind enums.ReferenceKind, localKey, remoteID string, metadata any) error {
	if !kind.IsValid() {
		return fmt.Errorf("invalid reference kind %q", kind)
	}
	if localKey == "" {
		return fmt.Errorf("local key is required")
	}
	if remoteID == "" {
		return fmt.Errorf("remote id is required")
	}

	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encoding reference metadata: %w", err)
		}
		raw = encoded
	}

	return s.repo.Upsert(ctx, &models.ExternalReference{
		Kind:     kind,
		LocalKey: localKey,
		RemoteID: remoteID,
		Metadata: raw,
	})
}

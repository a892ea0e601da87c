package reconcile

import (
	"context"
	"fmt"

	"github.com/retailops/erpbridge/internal/references"
	"github.com/retailops/erpbridge/pkg/erp"
)

// RemoteRecords is the slice of the remote client the reconciler needs for
// existence checks and submissions.
type RemoteRecords interface {
	AdjustmentExists(ctx context.Context, externalID string) (string, bool, error)
	SubmitAdjustment(ctx context.Context, header erp.AdjustmentHeader, lines []erp.AdjustmentLine) (*erp.SubmissionOutcome, error)
}

// IdempotencyResolver answers whether an adjustment was already applied.
// The local reference store is a cache over the remote system, never the
// source of truth, so a store miss still consults the remote record.
type IdempotencyResolver struct {
	refs    references.Store
	records RemoteRecords
}

func NewIdempotencyResolver(refs references.Store, records RemoteRecords) (*IdempotencyResolver, error) {
	if refs == nil {
		return nil, fmt.Errorf("reconcile: reference store is nil")
	}
	if records == nil {
		return nil, fmt.Errorf("reconcile: remote records client is nil")
	}
	return &IdempotencyResolver{refs: refs, records: records}, nil
}

// AlreadyApplied reports whether the event's adjustment exists, locally or
// remotely, along with the remote id when it does.
func (r *IdempotencyResolver) AlreadyApplied(ctx context.Context, event *AdjustmentEvent) (string, bool, error) {
	ref, found, err := r.refs.Lookup(ctx, event.Flow.ReferenceKind(), event.ReferenceKey())
	if err != nil {
		return "", false, err
	}
	if found {
		return ref.RemoteID, true, nil
	}
	remoteID, exists, err := r.records.AdjustmentExists(ctx, event.AdjustmentID)
	if err != nil {
		return "", false, err
	}
	return remoteID, exists, nil
}

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/retailops/erpbridge/internal/references"
	"github.com/retailops/erpbridge/pkg/enums"
	"github.com/retailops/erpbridge/pkg/erp"
	pkgerrors "github.com/retailops/erpbridge/pkg/errors"
	"github.com/retailops/erpbridge/pkg/logger"
	"github.com/retailops/erpbridge/pkg/metrics"
)

// Outcome labels how a reconciliation run ended.
type Outcome string

const (
	// OutcomeAlreadyApplied means the adjustment existed before this run.
	OutcomeAlreadyApplied Outcome = "already_applied"
	// OutcomeNothingToSubmit means every line carried a zero delta.
	OutcomeNothingToSubmit Outcome = "nothing_to_submit"
	// OutcomeRecorded means the adjustment was created this run.
	OutcomeRecorded Outcome = "recorded"
)

// Result is the terminal state of a successful reconciliation run.
type Result struct {
	Outcome  Outcome
	RemoteID string
}

// Reconciler drives an adjustment event from ingestion to a terminal state.
type Reconciler interface {
	Reconcile(ctx context.Context, event *AdjustmentEvent) (*Result, error)
}

// ReconcilerParams collects the reconciler's collaborators. Metrics may be
// nil in tests.
type ReconcilerParams struct {
	References references.Store
	Catalog    CatalogLookup
	Records    RemoteRecords
	Logger     *logger.Logger
	Metrics    *metrics.ReconcileMetrics
}

type reconciler struct {
	idem    *IdempotencyResolver
	batches *BatchBuilder
	records RemoteRecords
	refs    references.Store
	logg    *logger.Logger
	metrics *metrics.ReconcileMetrics
}

func NewReconciler(params ReconcilerParams) (Reconciler, error) {
	if params.Records == nil {
		return nil, fmt.Errorf("reconcile: remote records client is nil")
	}
	if params.References == nil {
		return nil, fmt.Errorf("reconcile: reference store is nil")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("reconcile: logger is nil")
	}
	idem, err := NewIdempotencyResolver(params.References, params.Records)
	if err != nil {
		return nil, err
	}
	batches, err := NewBatchBuilder(params.Catalog, params.References, params.Logger)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		idem:    idem,
		batches: batches,
		records: params.Records,
		refs:    params.References,
		logg:    params.Logger,
		metrics: params.Metrics,
	}, nil
}

func (r *reconciler) Reconcile(ctx context.Context, event *AdjustmentEvent) (*Result, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment event is nil")
	}
	if event.AdjustmentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment id is required")
	}
	ctx = r.logg.WithAdjustmentID(ctx, event.AdjustmentID)
	ctx = r.logg.WithFlow(ctx, string(event.Flow))

	remoteID, applied, err := r.idem.AlreadyApplied(ctx, event)
	if err != nil {
		return nil, err
	}
	if applied {
		r.logg.Info(ctx, "adjustment already applied, skipping submission")
		r.metrics.IncOutcome(string(event.Flow), string(OutcomeAlreadyApplied))
		return &Result{Outcome: OutcomeAlreadyApplied, RemoteID: remoteID}, nil
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	lines, err := r.batches.Build(ctx, event)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		r.logg.Info(ctx, "all quantity deltas are zero, nothing to submit")
		r.metrics.IncOutcome(string(event.Flow), string(OutcomeNothingToSubmit))
		return &Result{Outcome: OutcomeNothingToSubmit}, nil
	}

	start := time.Now()
	outcome, err := r.records.SubmitAdjustment(ctx, event.Header(), toAdjustmentLines(event, lines))
	r.metrics.ObserveSubmit(string(event.Flow), time.Since(start))
	if err != nil {
		r.metrics.IncOutcome(string(event.Flow), "error")
		return nil, err
	}
	if outcome.Failed() {
		r.metrics.IncOutcome(string(event.Flow), "rejected")
		return nil, submissionError(event, outcome)
	}
	for _, msg := range outcome.WarningMessages() {
		r.logg.Warn(r.logg.WithField(ctx, "warning", msg), "remote accepted adjustment with a warning")
	}

	remoteID = outcome.RemoteID
	if remoteID == "" && outcome.Status == enums.SubmissionStatusAlreadyExists {
		// a bare duplicate response carries no record id; the existence
		// lookup is the only way to recover it
		id, found, err := r.records.AdjustmentExists(ctx, event.AdjustmentID)
		if err != nil {
			return nil, err
		}
		if found {
			remoteID = id
		}
	}
	if remoteID != "" {
		if err := r.recordReference(ctx, event, remoteID); err != nil {
			return nil, err
		}
	}

	result := &Result{Outcome: OutcomeRecorded, RemoteID: remoteID}
	if outcome.Status == enums.SubmissionStatusAlreadyExists {
		result.Outcome = OutcomeAlreadyApplied
	}
	r.logg.Info(r.logg.WithField(ctx, "remote_id", remoteID), "adjustment reconciled")
	r.metrics.IncOutcome(string(event.Flow), string(result.Outcome))
	return result, nil
}

func (r *reconciler) recordReference(ctx context.Context, event *AdjustmentEvent, remoteID string) error {
	return r.refs.Record(ctx, event.Flow.ReferenceKind(), event.ReferenceKey(), remoteID, map[string]string{
		"adjustment_id": event.AdjustmentID,
		"remote_id":     remoteID,
		"description":   event.Memo,
		"type":          string(event.Flow),
	})
}

// submissionError folds every error-severity notice into one failure so the
// caller sees the full rejection, not just the first message.
func submissionError(event *AdjustmentEvent, outcome *erp.SubmissionOutcome) error {
	var combined error
	for _, msg := range outcome.ErrorMessages() {
		combined = multierr.Append(combined, errors.New(msg))
	}
	return pkgerrors.Wrap(pkgerrors.CodeSubmission, combined,
		fmt.Sprintf("remote rejected adjustment %s", event.AdjustmentID))
}

func toAdjustmentLines(event *AdjustmentEvent, lines []ResolvedLineItem) []erp.AdjustmentLine {
	out := make([]erp.AdjustmentLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, erp.AdjustmentLine{
			ItemID:        line.RemoteProductID,
			Line:          line.LineNumber,
			QuantityDelta: line.QuantityDelta,
			UnitCost:      line.UnitCost,
			LocationID:    event.LocationID,
		})
	}
	return out
}

package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/retailops/erpbridge/pkg/redis"
)

// EventGuard is a best-effort ingress dedupe in front of the reconciler.
// Delivery retries within the TTL are dropped before any remote call is
// made. The guard is an optimization only; the reconciler's own idempotency
// check remains the correctness backstop when the entry expires or the
// cache is lost.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("reconcile: idempotency store is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("reconcile: guard ttl must be positive")
	}
	return &EventGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark claims the event for processing. It returns true when the
// event was seen within the TTL and should be skipped.
func (g *EventGuard) CheckAndMark(ctx context.Context, flow, eventID string) (bool, error) {
	key := g.key(flow, eventID)
	claimed, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Release drops the claim so a failed event can be redelivered immediately.
func (g *EventGuard) Release(ctx context.Context, flow, eventID string) error {
	return g.store.Del(ctx, g.key(flow, eventID))
}

func (g *EventGuard) key(flow, eventID string) string {
	return g.store.IdempotencyKey("event:"+flow, eventID)
}

package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
)

// RingStore binds a Store to one ring and enforces that ring's policy:
// the tier invariant on every write and read, and session scoping on the
// in-session ring's query interface.
type RingStore struct {
	ring   Ring
	policy config.RingPolicy
	store  Store
}

func NewRingStore(ring Ring, policy config.RingPolicy, store Store) *RingStore {
	return &RingStore{
		ring:   ring,
		policy: policy,
		store:  store,
	}
}

func (r *RingStore) Ring() Ring {
	return r.ring
}

func (r *RingStore) Policy() config.RingPolicy {
	return r.policy
}

// Put persists the item. An item whose ring tag disagrees with this tier is a
// placement or migration bug; the write is halted rather than repaired.
func (r *RingStore) Put(ctx context.Context, item *MemoryItem) (uuid.UUID, error) {
	if item == nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "item is nil")
	}
	if item.Ring != r.ring {
		return uuid.Nil, errors.Wrapf(errors.ErrInvariantViolation,
			"item %s tagged %q cannot be written to the %q ring", item.ID, item.Ring, r.ring)
	}
	return r.store.Put(ctx, item)
}

func (r *RingStore) Get(ctx context.Context, id uuid.UUID) (*MemoryItem, error) {
	item, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Ring != r.ring {
		return nil, errors.Wrapf(errors.ErrInvariantViolation,
			"item %s read from the %q ring is tagged %q", id, r.ring, item.Ring)
	}
	return item, nil
}

func (r *RingStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.Delete(ctx, id)
}

// Query serves filtered reads. The in-session ring rejects queries without a
// session filter instead of silently returning nothing.
func (r *RingStore) Query(ctx context.Context, filter Filter, limit int) ([]*MemoryItem, error) {
	if err := r.checkScope(filter); err != nil {
		return nil, err
	}
	return r.store.Query(ctx, filter, limit)
}

func (r *RingStore) VectorSearch(ctx context.Context, embedding []float32, topK int, filter Filter) ([]ScoredItem, error) {
	if err := r.checkScope(filter); err != nil {
		return nil, err
	}
	return r.store.VectorSearch(ctx, embedding, topK, filter)
}

// Scan is the maintenance read path: items created before the cutoff across
// all sessions. Workers use it; the scoped Query interface above stays
// fail-loud for callers.
func (r *RingStore) Scan(ctx context.Context, before time.Time, limit int) ([]*MemoryItem, error) {
	return r.store.Query(ctx, Filter{Before: before}, limit)
}

// Expired returns items past the ring's retention window.
func (r *RingStore) Expired(ctx context.Context, now time.Time, limit int) ([]*MemoryItem, error) {
	if r.policy.Retention <= 0 {
		return nil, nil
	}
	return r.Scan(ctx, now.Add(-r.policy.Retention), limit)
}

func (r *RingStore) Close() error {
	return r.store.Close()
}

func (r *RingStore) checkScope(filter Filter) error {
	if r.ring == RingInSession && filter.SessionID == nil {
		return errors.Wrapf(errors.ErrSessionScope,
			"the %q ring requires a session filter", r.ring)
	}
	return nil
}

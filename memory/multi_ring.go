package memory

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"golang.org/x/sync/errgroup"
)

// MultiRing combines the three ring stores under one API. It is the sole
// writer of MemoryItem records: placement happens here, workers afterwards
// only move items between rings or delete them.
type MultiRing struct {
	rings    map[Ring]*RingStore
	embedder Embedder
	bus      *event.Bus
	logger   *slog.Logger
}

func NewMultiRing(
	inSession, shortTerm, longTerm *RingStore,
	embedder Embedder,
	bus *event.Bus,
	logger *slog.Logger,
) *MultiRing {
	return &MultiRing{
		rings: map[Ring]*RingStore{
			RingInSession: inSession,
			RingShortTerm: shortTerm,
			RingLongTerm:  longTerm,
		},
		embedder: embedder,
		bus:      bus,
		logger:   logger,
	}
}

// Ring exposes a single tier, used by maintenance workers.
func (m *MultiRing) Ring(ring Ring) (*RingStore, error) {
	rs, ok := m.rings[ring]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown ring %q", ring)
	}
	return rs, nil
}

// Write places the item via the placement function (unless overridden),
// persists it into the matching ring and publishes MemoryWritten. The write
// either fully succeeds or fully fails; embedding is best-effort and its
// absence only disables semantic retrieval for this item.
func (m *MultiRing) Write(ctx context.Context, item *MemoryItem, override *Ring) (uuid.UUID, error) {
	if item == nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "item is nil")
	}
	if !item.Kind.Valid() {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "invalid kind %q", item.Kind)
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	if item.LastAccessedAt.IsZero() {
		item.LastAccessedAt = item.CreatedAt
	}

	item.Ring = PlacementFor(item, override)
	if item.Ring == RingLongTerm {
		// Long-term items are cross-session; drop the session binding.
		item.SessionID = nil
	}

	if len(item.Embedding) == 0 && m.embedder != nil && item.Content != "" {
		if vecs, err := m.embedder.Embed(ctx, item.Content); err != nil {
			m.logger.Warn("embedding failed, storing item without vector",
				slog.String("item", item.ID.String()), slog.Any("error", err))
		} else if len(vecs) == 1 {
			item.Embedding = vecs[0]
		}
	}

	rs, err := m.Ring(item.Ring)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := rs.Put(ctx, item)
	if err != nil {
		return uuid.Nil, err
	}

	m.bus.Publish(event.NewMemoryWritten(id, item.SessionID, string(item.Ring), string(item.Kind)))
	return id, nil
}

// ReadAcross fans the filter out to the listed rings and merges the results,
// newest first. Each item keeps its origin ring tag for evidence lineage.
// Long-term items carry no session binding, so the session filter is dropped
// for that ring; any session may read cross-session memory.
func (m *MultiRing) ReadAcross(ctx context.Context, rings []Ring, filter Filter, limit int) ([]*MemoryItem, error) {
	perRing := make([][]*MemoryItem, len(rings))

	g, ctx := errgroup.WithContext(ctx)
	for i, ring := range rings {
		rs, err := m.Ring(ring)
		if err != nil {
			return nil, err
		}
		ringFilter := filterForRing(ring, filter)
		g.Go(func() error {
			items, err := rs.Query(ctx, ringFilter, limit)
			if err != nil {
				return errors.Wrapf(err, "read across failed on the %q ring", rs.Ring())
			}
			perRing[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := lo.Flatten(perRing)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// SearchAcross runs the vector search on each listed ring concurrently and
// merges by score. A nil session filter skips the in-session ring, which only
// serves session-scoped queries; a set one is dropped for the long-term ring,
// which is visible to every session.
func (m *MultiRing) SearchAcross(ctx context.Context, rings []Ring, embedding []float32, topK int, filter Filter) ([]ScoredItem, error) {
	perRing := make([][]ScoredItem, len(rings))

	g, ctx := errgroup.WithContext(ctx)
	for i, ring := range rings {
		rs, err := m.Ring(ring)
		if err != nil {
			return nil, err
		}
		if ring == RingInSession && filter.SessionID == nil {
			continue
		}
		ringFilter := filterForRing(ring, filter)
		g.Go(func() error {
			scored, err := rs.VectorSearch(ctx, embedding, topK, ringFilter)
			if err != nil {
				return errors.Wrapf(err, "search across failed on the %q ring", rs.Ring())
			}
			perRing[i] = scored
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := lo.Flatten(perRing)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// filterForRing widens the filter for cross-session rings: long-term items
// have no session binding, so a session-scoped filter would hide all of them.
func filterForRing(ring Ring, filter Filter) Filter {
	if ring == RingLongTerm {
		filter.SessionID = nil
	}
	return filter
}

// Recent returns the last turns of a session, oldest first, rebuilt from the
// in-session ring's message items.
func (m *MultiRing) Recent(ctx context.Context, sessionID uuid.UUID, limit int) ([]*Turn, error) {
	rs, err := m.Ring(RingInSession)
	if err != nil {
		return nil, err
	}

	items, err := rs.Query(ctx, Filter{
		SessionID: &sessionID,
		Kinds:     []Kind{KindMessage},
	}, limit)
	if err != nil {
		return nil, err
	}

	turns := make([]*Turn, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		turn, err := items[i].Turn()
		if err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Promote moves an item one ring up, preserving its id and source lineage.
// The destination write lands before the source delete, so a reader observes
// at most a brief duplicate and never a missing item; after completion exactly
// one copy exists.
func (m *MultiRing) Promote(ctx context.Context, item *MemoryItem) error {
	next, ok := item.Ring.Next()
	if !ok {
		return errors.Wrapf(errors.ErrInvalidParams, "item %s is already in the top ring", item.ID)
	}

	src, err := m.Ring(item.Ring)
	if err != nil {
		return err
	}
	dst, err := m.Ring(next)
	if err != nil {
		return err
	}

	promoted := item.Clone()
	promoted.Ring = next
	if next == RingLongTerm {
		promoted.SessionID = nil
	}

	if _, err := dst.Put(ctx, promoted); err != nil {
		return errors.Wrapf(err, "failed to write item %s into the %q ring", item.ID, next)
	}
	if err := src.Delete(ctx, item.ID); err != nil {
		return errors.Wrapf(err, "failed to remove item %s from the %q ring", item.ID, item.Ring)
	}

	m.bus.Publish(event.NewMemoryWritten(promoted.ID, promoted.SessionID, string(promoted.Ring), string(promoted.Kind)))
	return nil
}

// Close closes every ring store. Stores sharing a backend tolerate repeated
// closes.
func (m *MultiRing) Close() error {
	var firstErr error
	for _, ring := range Rings {
		if rs, ok := m.rings[ring]; ok {
			if err := rs.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

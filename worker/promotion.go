// Package worker implements the maintenance tasks that keep the memory rings
// consistent: retention pruning, importance-driven promotion, and window
// summarization. All workers are idempotent and event-driven.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/memory"
)

// Promotion moves items whose importance and age qualify them into the next
// ring up, preserving id and source lineage.
type Promotion struct {
	rings  *memory.MultiRing
	conf   *config.MemoryConfig
	logger *slog.Logger
}

func NewPromotion(rings *memory.MultiRing, conf *config.MemoryConfig, logger *slog.Logger) *Promotion {
	return &Promotion{
		rings:  rings,
		conf:   conf,
		logger: logger,
	}
}

func (w *Promotion) Name() string { return "promotion" }

func (w *Promotion) InterestedIn(ev event.Event) bool {
	switch ev.(type) {
	case event.MemoryWritten, event.PeriodicTick:
		return true
	}
	return false
}

func (w *Promotion) Run(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.MemoryWritten:
		return w.evaluate(ctx, memory.Ring(e.Ring), e.ItemID)
	case event.PeriodicTick:
		return w.sweep(ctx)
	}
	return nil
}

// evaluate checks one freshly written item.
func (w *Promotion) evaluate(ctx context.Context, ring memory.Ring, id uuid.UUID) error {
	if _, ok := ring.Next(); !ok {
		return nil
	}

	rs, err := w.rings.Ring(ring)
	if err != nil {
		return err
	}

	item, err := rs.Get(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		// Already pruned or promoted by a concurrent run; nothing to do.
		return nil
	} else if err != nil {
		return err
	}

	if !PromotionEligible(item, w.conf, time.Now()) {
		return nil
	}

	if err := w.rings.Promote(ctx, item); err != nil {
		return err
	}
	w.logger.Info("promoted memory item",
		slog.String("item", item.ID.String()),
		slog.String("from", string(ring)))
	return nil
}

// sweep is the tick fallback: it revisits the lower rings for items that
// became old enough to qualify since their write event.
func (w *Promotion) sweep(ctx context.Context) error {
	now := time.Now()

	// Snapshot both rings before moving anything so an item climbs at most
	// one tier per sweep.
	var candidates []*memory.MemoryItem
	for _, ring := range []memory.Ring{memory.RingInSession, memory.RingShortTerm} {
		rs, err := w.rings.Ring(ring)
		if err != nil {
			return err
		}
		items, err := rs.Scan(ctx, now.Add(-w.conf.PromotionMinAge), 0)
		if err != nil {
			return err
		}
		candidates = append(candidates, items...)
	}

	for _, item := range candidates {
		if !PromotionEligible(item, w.conf, now) {
			continue
		}
		if err := w.rings.Promote(ctx, item); err != nil {
			return err
		}
		w.logger.Info("promoted memory item",
			slog.String("item", item.ID.String()),
			slog.String("from", string(item.Ring)))
	}
	return nil
}

// PromotionEligible reports whether an item qualifies for the next ring up.
// The pruner consults the same predicate so an item is never promoted and
// pruned in the same pass: promotion wins.
func PromotionEligible(item *memory.MemoryItem, conf *config.MemoryConfig, now time.Time) bool {
	if _, ok := item.Ring.Next(); !ok {
		return false
	}
	if item.Importance < conf.PromotionImportance {
		return false
	}
	return now.Sub(item.CreatedAt) >= conf.PromotionMinAge
}

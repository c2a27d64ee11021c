package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/memory"
)

// TTLPruner deletes items past their ring's retention window. Re-running on
// an already-pruned set is a no-op.
type TTLPruner struct {
	rings  *memory.MultiRing
	conf   *config.MemoryConfig
	logger *slog.Logger
}

func NewTTLPruner(rings *memory.MultiRing, conf *config.MemoryConfig, logger *slog.Logger) *TTLPruner {
	return &TTLPruner{
		rings:  rings,
		conf:   conf,
		logger: logger,
	}
}

func (w *TTLPruner) Name() string { return "ttl-pruner" }

func (w *TTLPruner) InterestedIn(ev event.Event) bool {
	switch ev.(type) {
	case event.MemoryWritten, event.PeriodicTick:
		return true
	}
	return false
}

func (w *TTLPruner) Run(ctx context.Context, ev event.Event) error {
	now := time.Now()
	for _, ring := range memory.Rings {
		rs, err := w.rings.Ring(ring)
		if err != nil {
			return err
		}

		expired, err := rs.Expired(ctx, now, 0)
		if err != nil {
			return err
		}

		removed := 0
		for _, item := range expired {
			// Promotion takes priority over deletion: an item the promotion
			// worker would pick up is left for it.
			if PromotionEligible(item, w.conf, now) {
				continue
			}
			if err := rs.Delete(ctx, item.ID); err != nil {
				return err
			}
			removed++
		}

		if removed > 0 {
			w.logger.Info("pruned expired memory items",
				slog.String("ring", string(ring)),
				slog.Int("removed", removed))
		}
	}
	return nil
}

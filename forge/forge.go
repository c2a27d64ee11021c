// Package forge assembles the bounded per-turn context bundle: parallel
// fetch across the memory rings and the graph store, hybrid reranking under
// an intent-selected weight profile, and token-budget pruning.
package forge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/graph"
	"github.com/tessellate-ai/memring/memory"
)

type (
	Forge struct {
		rings      *memory.MultiRing
		graphStore graph.Store       // optional
		classifier Classifier        // optional, falls back to rules
		embedder   memory.Embedder   // optional, semantic fetch degrades without it
		bus        *event.Bus        // optional, TokensExceeded publishing
		conf       *config.ForgeConfig
		logger     *slog.Logger
	}

	Option func(*Forge)
)

func WithGraphStore(store graph.Store) Option {
	return func(f *Forge) { f.graphStore = store }
}

func WithClassifier(c Classifier) Option {
	return func(f *Forge) { f.classifier = c }
}

func WithEmbedder(e memory.Embedder) Option {
	return func(f *Forge) { f.embedder = e }
}

func WithBus(bus *event.Bus) Option {
	return func(f *Forge) { f.bus = bus }
}

func New(rings *memory.MultiRing, conf *config.ForgeConfig, logger *slog.Logger, opts ...Option) *Forge {
	f := &Forge{
		rings:  rings,
		conf:   conf,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.classifier == nil {
		f.classifier = NewRuleClassifier()
	}
	return f
}

// fetchResult carries one Stage-1 source's output. A failed or timed-out
// source leaves its slot empty rather than failing the turn.
type fetchResult struct {
	recent   []*memory.Turn
	semantic []memory.ScoredItem
	related  []*graph.Node
}

// BuildBundle runs the three pipeline stages for one turn. Partial Stage-1
// failures produce a smaller candidate pool, never an error; Stage 2 and 3
// are pure computation.
func (f *Forge) BuildBundle(ctx context.Context, turn *memory.Turn, intentHint string) (*memory.ContextBundle, error) {
	if turn == nil {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "turn is nil")
	}

	intent := Intent(intentHint)
	if intent == "" {
		intent = f.classifier.Classify(turn.Content)
	}

	queryEmbedding := f.queryEmbedding(ctx, turn)

	res := f.fetchParallel(ctx, turn, queryEmbedding)

	// Stage 2: pool, score, floor, dedup.
	pool := make([]Candidate, 0, len(res.recent)+len(res.semantic))
	for _, t := range res.recent {
		item := memory.NewItemFromTurn(t)
		pool = append(pool, Candidate{Item: item, OriginRing: memory.RingInSession})
	}
	for _, s := range res.semantic {
		pool = append(pool, Candidate{Item: s.Item, Semantic: s.Score, OriginRing: s.Item.Ring})
	}

	related := make(map[uuid.UUID]bool, len(res.related))
	for _, node := range res.related {
		related[node.ID] = true
	}

	profile := ProfileFor(intent, f.conf)
	ranked := Rerank(pool, queryEmbedding, profile, time.Now(), f.conf.RecencyWindow, related, f.conf.RelevanceFloor)
	ranked = Deduplicate(ranked)

	// Stage 3: budget pruning and assembly.
	kept, truncated := PruneToBudget(ranked, f.conf.TokenBudget)
	if truncated && f.bus != nil {
		f.bus.Publish(event.NewTokensExceeded(turn.SessionID, f.conf.TokenBudget))
	}

	return &memory.ContextBundle{
		SessionID:     turn.SessionID,
		CurrentTurn:   turn,
		RecentHistory: res.recent,
		RetrievedMemories: lo.Map(kept, func(c Candidate, _ int) *memory.MemoryItem {
			return c.Item
		}),
		RelatedEntities: lo.Map(res.related, func(n *graph.Node, _ int) string {
			return n.Label
		}),
	}, nil
}

// queryEmbedding computes the turn embedding once for scoring. Failure is
// isolated: it degrades the semantic fetch only.
func (f *Forge) queryEmbedding(ctx context.Context, turn *memory.Turn) []float32 {
	if len(turn.Embedding) > 0 {
		return turn.Embedding
	}
	if f.embedder == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.conf.FetchTimeout)
	defer cancel()

	vecs, err := f.embedder.Embed(ctx, turn.Content)
	if err != nil || len(vecs) != 1 {
		f.logger.Warn("query embedding failed, semantic fetch degraded",
			slog.String("session", turn.SessionID.String()), slog.Any("error", err))
		return nil
	}
	return vecs[0]
}

// fetchParallel runs the episodic, semantic and relational fetches
// concurrently, each under its own timeout. A source that fails or times out
// contributes an empty result.
func (f *Forge) fetchParallel(ctx context.Context, turn *memory.Turn, queryEmbedding []float32) fetchResult {
	var res fetchResult
	var wg sync.WaitGroup

	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, f.conf.FetchTimeout)
			defer cancel()
			if err := fn(fetchCtx); err != nil {
				f.logger.Warn("context fetch source degraded to empty result",
					slog.String("source", name),
					slog.String("session", turn.SessionID.String()),
					slog.Any("error", errors.Wrapf(errors.ErrSourceUnavailable, "%v", err)))
			}
		}()
	}

	run("episodic", func(fetchCtx context.Context) error {
		recent, err := f.rings.Recent(fetchCtx, turn.SessionID, f.conf.RecentLimit)
		if err != nil {
			return err
		}
		res.recent = recent
		return nil
	})

	if len(queryEmbedding) > 0 {
		run("semantic", func(fetchCtx context.Context) error {
			// The facade widens the filter for the long-term ring, so one
			// session-scoped fan-out also covers cross-session knowledge.
			sessionID := turn.SessionID
			scored, err := f.rings.SearchAcross(fetchCtx,
				[]memory.Ring{memory.RingShortTerm, memory.RingLongTerm},
				queryEmbedding, f.conf.SemanticTopK,
				memory.Filter{SessionID: &sessionID})
			if err != nil {
				return err
			}

			res.semantic = scored
			return nil
		})
	}

	if f.graphStore != nil {
		run("relational", func(fetchCtx context.Context) error {
			seeds := ExtractEntities(turn.Content)
			if len(seeds) == 0 {
				return nil
			}
			nodes, err := f.graphStore.Neighborhood(fetchCtx, seeds, f.conf.GraphDepth)
			if err != nil {
				return err
			}
			res.related = nodes
			return nil
		})
	}

	wg.Wait()
	return res
}

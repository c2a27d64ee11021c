package forge

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/memory"
	"gonum.org/v1/gonum/floats"
)

// Candidate is one pooled retrieval result awaiting reranking. OriginRing
// preserves evidence lineage through the pipeline.
type Candidate struct {
	Item       *memory.MemoryItem
	Semantic   float64
	OriginRing memory.Ring
}

// Score combines the semantic, recency, relational and importance signals
// under the given weight profile. It is pure: same inputs, same score.
//
// Recency decays linearly from 1 at age zero to 0 at the window bound.
// Relational is 1 when the candidate or its source record appears in the
// graph neighborhood, 0 otherwise.
func Score(
	c Candidate,
	queryEmbedding []float32,
	profile config.WeightProfile,
	now time.Time,
	window time.Duration,
	related map[uuid.UUID]bool,
) float64 {
	sem := c.Semantic
	if sem == 0 && len(queryEmbedding) > 0 && len(c.Item.Embedding) == len(queryEmbedding) {
		sem = cosine(queryEmbedding, c.Item.Embedding)
	}

	return profile.Semantic*sem +
		profile.Recency*recencyScore(c.Item, now, window) +
		profile.Relational*relationalScore(c.Item, related) +
		profile.Importance*c.Item.Importance
}

func recencyScore(item *memory.MemoryItem, now time.Time, window time.Duration) float64 {
	if window <= 0 {
		return 0
	}
	age := now.Sub(item.LastAccessedAt)
	if age < 0 {
		age = 0
	}
	score := 1.0 - float64(age)/float64(window)
	if score < 0 {
		return 0
	}
	return score
}

func relationalScore(item *memory.MemoryItem, related map[uuid.UUID]bool) float64 {
	if len(related) == 0 {
		return 0
	}
	if related[item.ID] {
		return 1
	}
	if item.SourceID != nil && related[*item.SourceID] {
		return 1
	}
	return 0
}

// cosine maps the similarity of two vectors into [0,1].
func cosine(a []float32, b []float32) float64 {
	fa := make([]float64, len(a))
	fb := make([]float64, len(b))
	for i := range a {
		fa[i] = float64(a[i])
		fb[i] = float64(b[i])
	}

	magA := floats.Norm(fa, 2)
	magB := floats.Norm(fb, 2)
	if magA == 0 || magB == 0 {
		return 0
	}
	return (floats.Dot(fa, fb)/(magA*magB) + 1.0) * 0.5
}

// Rerank scores, sorts descending and applies the relevance floor. The input
// slice is not modified.
func Rerank(
	candidates []Candidate,
	queryEmbedding []float32,
	profile config.WeightProfile,
	now time.Time,
	window time.Duration,
	related map[uuid.UUID]bool,
	floor float64,
) []Candidate {
	type scored struct {
		c     Candidate
		score float64
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := Score(c, queryEmbedding, profile, now, window, related)
		if s < floor {
			continue
		}
		ranked = append(ranked, scored{c: c, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.c
	}
	return out
}

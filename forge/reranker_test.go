package forge_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/forge"
	"github.com/tessellate-ai/memring/memory"
)

func candidate(semantic, importance float64, age time.Duration, now time.Time) forge.Candidate {
	return forge.Candidate{
		Item: &memory.MemoryItem{
			ID:             uuid.New(),
			Kind:           memory.KindFact,
			Content:        "candidate",
			Importance:     importance,
			Ring:           memory.RingShortTerm,
			CreatedAt:      now.Add(-age),
			LastAccessedAt: now.Add(-age),
		},
		Semantic: semantic,
	}
}

func TestScoreIsPure(t *testing.T) {
	now := time.Now()
	window := 30 * 24 * time.Hour
	profile := config.NewForgeConfig().Analytical
	c := candidate(0.8, 0.6, time.Hour, now)

	first := forge.Score(c, nil, profile, now, window, nil)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, forge.Score(c, nil, profile, now, window, nil))
	}
}

func TestScoreMonotonicInEachSignal(t *testing.T) {
	now := time.Now()
	window := 30 * 24 * time.Hour
	profile := config.WeightProfile{Semantic: 0.4, Recency: 0.3, Relational: 0.2, Importance: 0.1}

	// Higher semantic similarity, all else equal.
	low := candidate(0.2, 0.5, time.Hour, now)
	high := candidate(0.9, 0.5, time.Hour, now)
	require.Greater(t,
		forge.Score(high, nil, profile, now, window, nil),
		forge.Score(low, nil, profile, now, window, nil))

	// Fresher item, all else equal.
	stale := candidate(0.5, 0.5, 20*24*time.Hour, now)
	fresh := candidate(0.5, 0.5, time.Minute, now)
	require.Greater(t,
		forge.Score(fresh, nil, profile, now, window, nil),
		forge.Score(stale, nil, profile, now, window, nil))

	// Higher importance, all else equal.
	minor := candidate(0.5, 0.1, time.Hour, now)
	major := candidate(0.5, 0.9, time.Hour, now)
	require.Greater(t,
		forge.Score(major, nil, profile, now, window, nil),
		forge.Score(minor, nil, profile, now, window, nil))

	// Graph-connected item, all else equal.
	plain := candidate(0.5, 0.5, time.Hour, now)
	connected := candidate(0.5, 0.5, time.Hour, now)
	related := map[uuid.UUID]bool{connected.Item.ID: true}
	require.Greater(t,
		forge.Score(connected, nil, profile, now, window, related),
		forge.Score(plain, nil, profile, now, window, related))
}

func TestScoreRecencyDecaysToZero(t *testing.T) {
	now := time.Now()
	window := 24 * time.Hour
	profile := config.WeightProfile{Recency: 1}

	fresh := candidate(0, 0, 0, now)
	half := candidate(0, 0, 12*time.Hour, now)
	beyond := candidate(0, 0, 48*time.Hour, now)

	require.InDelta(t, 1.0, forge.Score(fresh, nil, profile, now, window, nil), 1e-6)
	require.InDelta(t, 0.5, forge.Score(half, nil, profile, now, window, nil), 1e-6)
	require.Equal(t, 0.0, forge.Score(beyond, nil, profile, now, window, nil))
}

func TestScoreRelationalViaSourceID(t *testing.T) {
	now := time.Now()
	profile := config.WeightProfile{Relational: 1}

	source := uuid.New()
	c := candidate(0, 0, time.Hour, now)
	c.Item.SourceID = &source

	require.Equal(t, 1.0, forge.Score(c, nil, profile, now, time.Hour, map[uuid.UUID]bool{source: true}))
	require.Equal(t, 0.0, forge.Score(c, nil, profile, now, time.Hour, map[uuid.UUID]bool{uuid.New(): true}))
}

func TestScoreCosineFallback(t *testing.T) {
	now := time.Now()
	profile := config.WeightProfile{Semantic: 1}
	query := []float32{1, 0}

	aligned := candidate(0, 0, time.Hour, now)
	aligned.Item.Embedding = []float32{1, 0}
	opposed := candidate(0, 0, time.Hour, now)
	opposed.Item.Embedding = []float32{-1, 0}

	require.InDelta(t, 1.0, forge.Score(aligned, query, profile, now, time.Hour, nil), 1e-6)
	require.InDelta(t, 0.0, forge.Score(opposed, query, profile, now, time.Hour, nil), 1e-6)
}

func TestRerankOrdersAndFloors(t *testing.T) {
	now := time.Now()
	conf := config.NewForgeConfig()

	strong := candidate(0.9, 0.9, time.Minute, now)
	middle := candidate(0.6, 0.5, time.Hour, now)
	weak := candidate(0.01, 0.0, 29*24*time.Hour, now)

	ranked := forge.Rerank(
		[]forge.Candidate{weak, middle, strong},
		nil, conf.Analytical, now, conf.RecencyWindow, nil, conf.RelevanceFloor)

	require.Len(t, ranked, 2)
	require.Equal(t, strong.Item.ID, ranked[0].Item.ID)
	require.Equal(t, middle.Item.ID, ranked[1].Item.ID)
}

func TestRerankProfileChangesOrder(t *testing.T) {
	now := time.Now()
	conf := config.NewForgeConfig()

	// Very similar but old versus barely similar but fresh.
	relevant := candidate(1.0, 0.3, 29*24*time.Hour, now)
	recent := candidate(0.45, 0.3, time.Minute, now)
	pool := []forge.Candidate{relevant, recent}

	analytical := forge.Rerank(pool, nil, conf.Analytical, now, conf.RecencyWindow, nil, 0)
	require.Equal(t, relevant.Item.ID, analytical[0].Item.ID)

	followUp := forge.Rerank(pool, nil, conf.FollowUp, now, conf.RecencyWindow, nil, 0)
	require.Equal(t, recent.Item.ID, followUp[0].Item.ID)
}

package forge_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/forge"
	"github.com/tessellate-ai/memring/graph"
	"github.com/tessellate-ai/memring/memory"
)

type staticEmbedder struct {
	vec []float32
}

func (e *staticEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

// blockingEmbedder never answers before its context expires.
type blockingEmbedder struct{}

func (e *blockingEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func newForgeFixture(t *testing.T) (*memory.MultiRing, *event.Bus, uuid.UUID) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := event.NewBus(logger)
	conf := config.NewMemoryConfig()
	session := uuid.New()

	rings := memory.NewMultiRing(
		memory.NewRingStore(memory.RingInSession, conf.InSession, memory.NewInMemoryStore()),
		memory.NewRingStore(memory.RingShortTerm, conf.ShortTerm, memory.NewInMemoryStore()),
		memory.NewRingStore(memory.RingLongTerm, conf.LongTerm, memory.NewInMemoryStore()),
		nil,
		bus,
		logger,
	)
	t.Cleanup(func() {
		bus.Close()
		require.NoError(t, rings.Close())
	})

	ctx := context.TODO()

	for _, content := range []string{"planning the rollout", "we picked the blue theme"} {
		turn := &memory.Turn{
			ID:        uuid.New(),
			SessionID: session,
			Role:      memory.RoleUser,
			Content:   content,
			CreatedAt: time.Now().Add(-time.Minute),
		}
		_, err := rings.Write(ctx, memory.NewItemFromTurn(turn), nil)
		require.NoError(t, err)
	}

	fact := &memory.MemoryItem{
		SessionID:  &session,
		Kind:       memory.KindFact,
		Content:    "the rollout freeze starts next Monday",
		Importance: 0.5,
		Embedding:  []float32{1, 0},
		CreatedAt:  time.Now().Add(-time.Hour),
	}
	_, err := rings.Write(ctx, fact, nil)
	require.NoError(t, err)

	return rings, bus, session
}

func TestBuildBundleAssemblesAllSources(t *testing.T) {
	rings, bus, session := newForgeFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	graphStore := graph.NewInMemoryStore()
	alice := graphStore.AddNode("Alice", nil)
	graphStore.AddEdge(alice, graphStore.AddNode("Billing", nil))

	f := forge.New(rings, config.NewForgeConfig(), logger,
		forge.WithEmbedder(&staticEmbedder{vec: []float32{1, 0}}),
		forge.WithGraphStore(graphStore),
		forge.WithBus(bus),
	)

	bundle, err := f.BuildBundle(context.TODO(), &memory.Turn{
		ID:        uuid.New(),
		SessionID: session,
		Content:   "Summarize the rollout plan Alice proposed",
		CreatedAt: time.Now(),
	}, "")
	require.NoError(t, err)

	require.Equal(t, session, bundle.SessionID)
	require.Len(t, bundle.RecentHistory, 2)
	require.Equal(t, "planning the rollout", bundle.RecentHistory[0].Content)

	contents := make([]string, 0, len(bundle.RetrievedMemories))
	for _, item := range bundle.RetrievedMemories {
		contents = append(contents, item.Content)
	}
	require.Contains(t, contents, "the rollout freeze starts next Monday")

	require.Contains(t, bundle.RelatedEntities, "Alice")
	require.Contains(t, bundle.RelatedEntities, "Billing")
}

func TestBuildBundleDegradesOnSlowEmbedder(t *testing.T) {
	rings, _, session := newForgeFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	conf := config.NewForgeConfig()
	conf.FetchTimeout = 50 * time.Millisecond

	graphStore := graph.NewInMemoryStore()
	graphStore.AddEdge(graphStore.AddNode("Alice", nil), graphStore.AddNode("Billing", nil))

	f := forge.New(rings, conf, logger,
		forge.WithEmbedder(&blockingEmbedder{}),
		forge.WithGraphStore(graphStore),
	)

	start := time.Now()
	bundle, err := f.BuildBundle(context.TODO(), &memory.Turn{
		ID:        uuid.New(),
		SessionID: session,
		Content:   "what did Alice say about the rollout?",
		CreatedAt: time.Now(),
	}, "")
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second)

	// The episodic and relational sources still answer; the semantic one
	// degraded to empty, so the stored fact stays out of the bundle.
	require.Len(t, bundle.RecentHistory, 2)
	require.Contains(t, bundle.RelatedEntities, "Billing")
	for _, item := range bundle.RetrievedMemories {
		require.NotEqual(t, "the rollout freeze starts next Monday", item.Content)
	}
}

func TestBuildBundleWithoutOptionalCollaborators(t *testing.T) {
	rings, _, session := newForgeFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := forge.New(rings, config.NewForgeConfig(), logger)

	bundle, err := f.BuildBundle(context.TODO(), &memory.Turn{
		ID:        uuid.New(),
		SessionID: session,
		Content:   "plain question",
		CreatedAt: time.Now(),
	}, "")
	require.NoError(t, err)
	require.Len(t, bundle.RecentHistory, 2)
	require.Empty(t, bundle.RelatedEntities)
}

func TestBuildBundlePublishesTokensExceeded(t *testing.T) {
	rings, bus, session := newForgeFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx := context.TODO()
	long := &memory.MemoryItem{
		SessionID:  &session,
		Kind:       memory.KindFact,
		Content:    strings.Repeat("rollout details ", 200),
		Importance: 0.5,
		Embedding:  []float32{1, 0},
		CreatedAt:  time.Now(),
	}
	_, err := rings.Write(ctx, long, nil)
	require.NoError(t, err)

	events, cancel := bus.Subscribe(func(ev event.Event) bool {
		_, ok := ev.(event.TokensExceeded)
		return ok
	})
	defer cancel()

	conf := config.NewForgeConfig()
	conf.TokenBudget = 10

	f := forge.New(rings, conf, logger,
		forge.WithEmbedder(&staticEmbedder{vec: []float32{1, 0}}),
		forge.WithBus(bus),
	)

	bundle, err := f.BuildBundle(ctx, &memory.Turn{
		ID:        uuid.New(),
		SessionID: session,
		Content:   "tell me the rollout details",
		CreatedAt: time.Now(),
	}, "")
	require.NoError(t, err)
	require.Empty(t, bundle.RetrievedMemories)

	select {
	case ev := <-events:
		exceeded := ev.(event.TokensExceeded)
		require.Equal(t, session, exceeded.SessionID)
		require.Equal(t, 10, exceeded.Tokens)
	case <-time.After(time.Second):
		t.Fatal("expected a TokensExceeded event")
	}
}

func TestBuildBundleIntentHintSkipsClassifier(t *testing.T) {
	rings, _, session := newForgeFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := forge.New(rings, config.NewForgeConfig(), logger)

	// A hint must not panic or misroute even for text the classifier would
	// label differently.
	_, err := f.BuildBundle(context.TODO(), &memory.Turn{
		ID:        uuid.New(),
		SessionID: session,
		Content:   "who owns this?",
		CreatedAt: time.Now(),
	}, string(forge.IntentAnalytical))
	require.NoError(t, err)

	_, err = f.BuildBundle(context.TODO(), nil, "")
	require.Error(t, err)
}

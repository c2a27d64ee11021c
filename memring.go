// Package memring is a tiered memory subsystem for conversational agents.
// Turns are written into three rings (in_session, short_term, long_term) with
// distinct retention and visibility rules, background workers promote, prune
// and summarize between the rings, and the forge pipeline assembles a
// token-bounded context bundle for each new turn.
package memring

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
	"github.com/tessellate-ai/memring/event"
	"github.com/tessellate-ai/memring/forge"
	"github.com/tessellate-ai/memring/graph"
	"github.com/tessellate-ai/memring/internal/mylog"
	"github.com/tessellate-ai/memring/memory"
	"github.com/tessellate-ai/memring/scheduler"
	"github.com/tessellate-ai/memring/worker"
)

type (
	Memring struct {
		rings     *memory.MultiRing
		forge     *forge.Forge
		bus       *event.Bus
		scheduler *scheduler.Adaptive
		tagger    memory.Tagger
		logger    *slog.Logger

		embedder   memory.Embedder
		generator  worker.Generator
		graphStore graph.Store

		logConfig       *config.LogConfig
		memoryConfig    *config.MemoryConfig
		forgeConfig     *config.ForgeConfig
		schedulerConfig *config.SchedulerConfig
		openaiConfig    *config.OpenAIConfig
	}
	Option func(*Memring)
)

func NewMemring(ctx context.Context, optionFuncs ...Option) (*Memring, error) {
	m := &Memring{
		logConfig:       config.NewLogConfig(),
		memoryConfig:    config.NewMemoryConfig(),
		forgeConfig:     config.NewForgeConfig(),
		schedulerConfig: config.NewSchedulerConfig(),
		openaiConfig:    config.NewOpenAIConfig(),
	}
	for _, f := range optionFuncs {
		f(m)
	}

	if m.logger == nil {
		m.logger = mylog.NewLogger(m.logConfig.LogLevel, m.logConfig.LogHandler)
	}
	if m.tagger == nil {
		m.tagger = memory.NewHeuristicTagger()
	}
	if m.embedder == nil && m.openaiConfig.APIKey != "" {
		m.embedder = memory.NewOpenAIEmbedder(m.openaiConfig)
	}
	if m.generator == nil {
		if m.openaiConfig.APIKey != "" {
			m.generator = worker.NewOpenAIGenerator(m.openaiConfig)
		} else {
			m.generator = &worker.ExtractiveGenerator{}
		}
	}

	m.bus = event.NewBus(m.logger)

	stores, err := m.openStores()
	if err != nil {
		return nil, err
	}

	m.rings = memory.NewMultiRing(
		memory.NewRingStore(memory.RingInSession, m.memoryConfig.InSession, stores[memory.RingInSession]),
		memory.NewRingStore(memory.RingShortTerm, m.memoryConfig.ShortTerm, stores[memory.RingShortTerm]),
		memory.NewRingStore(memory.RingLongTerm, m.memoryConfig.LongTerm, stores[memory.RingLongTerm]),
		m.embedder,
		m.bus,
		m.logger,
	)

	forgeOpts := []forge.Option{forge.WithBus(m.bus)}
	if m.embedder != nil {
		forgeOpts = append(forgeOpts, forge.WithEmbedder(m.embedder))
	}
	if m.graphStore != nil {
		forgeOpts = append(forgeOpts, forge.WithGraphStore(m.graphStore))
	}
	m.forge = forge.New(m.rings, m.forgeConfig, m.logger, forgeOpts...)

	m.scheduler = scheduler.NewAdaptive(m.bus, []scheduler.Worker{
		worker.NewTTLPruner(m.rings, m.memoryConfig, m.logger),
		worker.NewPromotion(m.rings, m.memoryConfig, m.logger),
		worker.NewSummarizer(m.rings, m.generator, m.memoryConfig, m.logger),
	}, m.schedulerConfig, m.logger)
	if err := m.scheduler.Start(ctx); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Memring) openStores() (map[memory.Ring]memory.Store, error) {
	stores := make(map[memory.Ring]memory.Store, len(memory.Rings))

	if m.memoryConfig.SqlitePath == "" {
		for _, ring := range memory.Rings {
			stores[ring] = memory.NewInMemoryStore()
		}
		return stores, nil
	}

	db, err := memory.OpenSqlite(m.memoryConfig.SqlitePath)
	if err != nil {
		return nil, err
	}
	for _, ring := range memory.Rings {
		stores[ring], err = memory.NewSqliteStore(db, ring, m.memoryConfig.VectorDim)
		if err != nil {
			return nil, err
		}
	}
	return stores, nil
}

// WriteTurn records one conversational turn: the tagger assigns importance
// and topic, the turn becomes a message item in the rings, and NewTurn goes
// out on the bus for the background workers.
func (m *Memring) WriteTurn(ctx context.Context, sessionID uuid.UUID, role memory.Role, content string) (uuid.UUID, error) {
	if content == "" {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "content is empty")
	}

	turn := &memory.Turn{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}

	tags, err := m.tagger.Tag(ctx, turn)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, "failed to tag turn")
	}

	item := memory.NewItemFromTurn(turn)
	item.Importance = tags.Importance
	if tags.Topic != "" {
		item.Metadata["topic"] = tags.Topic
	}

	id, err := m.rings.Write(ctx, item, nil)
	if err != nil {
		return uuid.Nil, err
	}

	m.bus.Publish(event.NewNewTurn(sessionID, turn.ID, string(role)))
	return id, nil
}

// BuildContext assembles the retrieval bundle for the given turn text.
func (m *Memring) BuildContext(ctx context.Context, sessionID uuid.UUID, content string) (*memory.ContextBundle, error) {
	turn := &memory.Turn{
		ID:        uuid.New(),
		SessionID: sessionID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	return m.forge.BuildBundle(ctx, turn, "")
}

func (m *Memring) Rings() *memory.MultiRing { return m.rings }

func (m *Memring) Forge() *forge.Forge { return m.forge }

func (m *Memring) Bus() *event.Bus { return m.bus }

func (m *Memring) Close() error {
	m.scheduler.Stop()
	m.bus.Close()
	return m.rings.Close()
}

func WithOpenAIAPIKey(apiKey string) func(m *Memring) {
	return func(m *Memring) {
		m.openaiConfig.APIKey = apiKey
	}
}

func WithLogger(logger *slog.Logger) func(m *Memring) {
	return func(m *Memring) {
		m.logger = logger
	}
}

func WithLogConfig(logConfig *config.LogConfig) func(m *Memring) {
	return func(m *Memring) {
		m.logConfig = logConfig
	}
}

func WithMemoryConfig(memoryConfig *config.MemoryConfig) func(m *Memring) {
	return func(m *Memring) {
		m.memoryConfig = memoryConfig
	}
}

func WithForgeConfig(forgeConfig *config.ForgeConfig) func(m *Memring) {
	return func(m *Memring) {
		m.forgeConfig = forgeConfig
	}
}

func WithSchedulerConfig(schedulerConfig *config.SchedulerConfig) func(m *Memring) {
	return func(m *Memring) {
		m.schedulerConfig = schedulerConfig
	}
}

func WithConfig(conf *config.Config) func(m *Memring) {
	return func(m *Memring) {
		m.logConfig = conf.Log
		m.memoryConfig = conf.Memory
		m.forgeConfig = conf.Forge
		m.schedulerConfig = conf.Scheduler
		m.openaiConfig = conf.OpenAI
	}
}

func WithEmbedder(embedder memory.Embedder) func(m *Memring) {
	return func(m *Memring) {
		m.embedder = embedder
	}
}

func WithGenerator(generator worker.Generator) func(m *Memring) {
	return func(m *Memring) {
		m.generator = generator
	}
}

func WithGraphStore(store graph.Store) func(m *Memring) {
	return func(m *Memring) {
		m.graphStore = store
	}
}

func WithTagger(tagger memory.Tagger) func(m *Memring) {
	return func(m *Memring) {
		m.tagger = tagger
	}
}

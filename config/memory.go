package config

import "time"

// RingPolicy fixes retention, the importance floor, and the visibility rule
// for one memory ring.
type RingPolicy struct {
	// Retention is how long an item may live in the ring before the pruner
	// removes it. Zero means unbounded.
	Retention time.Duration `yaml:"retention"`

	// ImportanceFloor is the minimum importance expected of items placed in
	// this ring by the placement function.
	ImportanceFloor float64 `yaml:"importanceFloor"`

	// CrossSession controls whether the ring serves queries for sessions other
	// than the one an item was written under.
	CrossSession bool `yaml:"crossSession"`
}

type MemoryConfig struct {
	// SqlitePath is the file path of the SQLite database backing the durable
	// ring stores. Empty selects the in-memory store implementation.
	SqlitePath string `env:"MEMRING_SQLITE_PATH" yaml:"sqlitePath"`

	// VectorDim is the dimension of the embedding vectors kept in the
	// per-ring vector index.
	VectorDim int `env:"MEMRING_VECTOR_DIM" yaml:"vectorDim"`

	InSession RingPolicy `yaml:"inSession"`
	ShortTerm RingPolicy `yaml:"shortTerm"`
	LongTerm  RingPolicy `yaml:"longTerm"`

	// Promotion thresholds evaluated by the promotion worker.
	PromotionImportance float64       `env:"MEMRING_PROMOTION_IMPORTANCE" yaml:"promotionImportance"`
	PromotionMinAge     time.Duration `env:"MEMRING_PROMOTION_MIN_AGE" yaml:"promotionMinAge"`

	// Summarization buffer triggers.
	SummaryBufferLimit    int `env:"MEMRING_SUMMARY_BUFFER_LIMIT" yaml:"summaryBufferLimit"`
	SummaryImportantCount int `env:"MEMRING_SUMMARY_IMPORTANT_COUNT" yaml:"summaryImportantCount"`
}

func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		VectorDim: 1536,
		InSession: RingPolicy{
			Retention:       time.Hour,
			ImportanceFloor: 0.3,
			CrossSession:    false,
		},
		ShortTerm: RingPolicy{
			Retention:       7 * 24 * time.Hour,
			ImportanceFloor: 0.5,
			CrossSession:    false,
		},
		LongTerm: RingPolicy{
			Retention:       0,
			ImportanceFloor: 0.7,
			CrossSession:    true,
		},
		PromotionImportance:   0.6,
		PromotionMinAge:       5 * time.Minute,
		SummaryBufferLimit:    20,
		SummaryImportantCount: 5,
	}
}

package config

import "time"

// WeightProfile holds the rerank coefficients selected per query intent.
// The exact values are tunable; only the relative ordering behavior is
// contractual (see forge tests).
type WeightProfile struct {
	Semantic   float64 `yaml:"semantic"`
	Recency    float64 `yaml:"recency"`
	Relational float64 `yaml:"relational"`
	Importance float64 `yaml:"importance"`
}

type ForgeConfig struct {
	// RecentLimit is how many raw turns the episodic fetch returns.
	RecentLimit int `env:"MEMRING_RECENT_LIMIT" yaml:"recentLimit"`

	// SemanticTopK deliberately over-fetches versus the final budget so the
	// reranker has room to discriminate.
	SemanticTopK int `env:"MEMRING_SEMANTIC_TOP_K" yaml:"semanticTopK"`

	// GraphDepth bounds the relational neighborhood traversal.
	GraphDepth int `env:"MEMRING_GRAPH_DEPTH" yaml:"graphDepth"`

	// FetchTimeout applies independently to each Stage-1 source.
	FetchTimeout time.Duration `env:"MEMRING_FETCH_TIMEOUT" yaml:"fetchTimeout"`

	// RelevanceFloor drops candidates scoring below it after reranking.
	RelevanceFloor float64 `env:"MEMRING_RELEVANCE_FLOOR" yaml:"relevanceFloor"`

	// TokenBudget caps the estimated size of retrieved_memories in a bundle.
	TokenBudget int `env:"MEMRING_TOKEN_BUDGET" yaml:"tokenBudget"`

	// RecencyWindow is the age at which the recency score reaches zero.
	RecencyWindow time.Duration `env:"MEMRING_RECENCY_WINDOW" yaml:"recencyWindow"`

	Relational WeightProfile `yaml:"relational"`
	FollowUp   WeightProfile `yaml:"followUp"`
	Analytical WeightProfile `yaml:"analytical"`
}

func NewForgeConfig() *ForgeConfig {
	return &ForgeConfig{
		RecentLimit:    10,
		SemanticTopK:   15,
		GraphDepth:     2,
		FetchTimeout:   2 * time.Second,
		RelevanceFloor: 0.4,
		TokenBudget:    3000,
		RecencyWindow:  30 * 24 * time.Hour,
		Relational:     WeightProfile{Semantic: 0.3, Recency: 0.2, Relational: 0.4, Importance: 0.1},
		FollowUp:       WeightProfile{Semantic: 0.3, Recency: 0.4, Relational: 0.1, Importance: 0.2},
		Analytical:     WeightProfile{Semantic: 0.5, Recency: 0.2, Relational: 0.2, Importance: 0.1},
	}
}

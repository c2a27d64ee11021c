package config

type OpenAIConfig struct {
	APIKey string `env:"OPENAI_API_KEY" yaml:"apiKey"`

	// EmbeddingModel backs the Embedder used for writes and retrieval.
	EmbeddingModel string `env:"MEMRING_EMBEDDING_MODEL" yaml:"embeddingModel"`

	// SummaryModel backs the summarizer's text generation.
	SummaryModel string `env:"MEMRING_SUMMARY_MODEL" yaml:"summaryModel"`
}

func NewOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		EmbeddingModel: "text-embedding-3-small",
		SummaryModel:   "gpt-4o-mini",
	}
}

package memory

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
)

type (
	// Embedder is the embedding-provider boundary. Implementations may fail or
	// be slow; callers isolate that per retrieval source.
	Embedder interface {
		Embed(ctx context.Context, texts ...string) ([][]float32, error)
	}

	// OpenAIEmbedder implements Embedder against the OpenAI embeddings API.
	OpenAIEmbedder struct {
		client openai.Client
		model  string
	}
)

var _ Embedder = (*OpenAIEmbedder)(nil)

func NewOpenAIEmbedder(conf *config.OpenAIConfig) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(conf.APIKey)),
		model:  conf.EmbeddingModel,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	res, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed %d texts", len(texts))
	}

	embeddings := make([][]float32, len(res.Data))
	for i, emb := range res.Data {
		vec := make([]float32, len(emb.Embedding))
		for j, v := range emb.Embedding {
			vec[j] = float32(v)
		}
		embeddings[i] = vec
	}
	return embeddings, nil
}

package worker

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/tessellate-ai/memring/config"
	"github.com/tessellate-ai/memring/errors"
)

type (
	// OpenAIGenerator summarizes via a chat completion.
	OpenAIGenerator struct {
		client openai.Client
		model  string
	}

	// ExtractiveGenerator is the no-network fallback: it keeps the first
	// sentence of each source line, clipped to a fixed length. Used when no
	// API key is configured and in tests.
	ExtractiveGenerator struct {
		MaxLen int
	}
)

func NewOpenAIGenerator(conf *config.OpenAIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(conf.APIKey)),
		model:  conf.SummaryModel,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "chat completion failed")
	}
	if len(res.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}

func (g *ExtractiveGenerator) Generate(_ context.Context, prompt string) (string, error) {
	maxLen := g.MaxLen
	if maxLen <= 0 {
		maxLen = 600
	}

	var parts []string
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		// Source lines in the prompt are "role: content".
		_, content, found := strings.Cut(line, ": ")
		if !found || content == "" {
			continue
		}
		if i := strings.IndexAny(content, ".!?"); i > 0 {
			content = content[:i+1]
		}
		parts = append(parts, content)
	}

	out := strings.Join(parts, " ")
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return out, nil
}

package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/memory"
)

func TestHeuristicTagger(t *testing.T) {
	ctx := context.TODO()
	tagger := memory.NewHeuristicTagger()

	tests := []struct {
		name       string
		content    string
		importance float64
	}{
		{"greeting", "hi!", 0.1},
		{"thanks", "thanks", 0.1},
		{"preference", "I always prefer the aisle seat", 0.7},
		{"decision", "we decided to ship on Friday", 0.7},
		{"introduction", "my name is Ada", 0.7},
		{"plain turn", "the weather looks fine today", 0.3},
		{"long turn", strings.Repeat("a detailed paragraph ", 15), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := tagger.Tag(ctx, &memory.Turn{Content: tt.content})
			require.NoError(t, err)
			require.Equal(t, tt.importance, tags.Importance)
		})
	}
}

func TestHeuristicTaggerTopic(t *testing.T) {
	ctx := context.TODO()
	tagger := memory.NewHeuristicTagger()

	tags, err := tagger.Tag(ctx, &memory.Turn{Content: "Planning the Berlin offsite agenda"})
	require.NoError(t, err)
	require.Equal(t, "planning the berlin", tags.Topic)

	tags, err = tagger.Tag(ctx, &memory.Turn{Content: "?!"})
	require.NoError(t, err)
	require.Equal(t, "general", tags.Topic)
}

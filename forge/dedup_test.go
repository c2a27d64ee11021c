package forge_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/forge"
	"github.com/tessellate-ai/memring/memory"
)

func TestDeduplicateSummarySupersedesSource(t *testing.T) {
	raw := textCandidate("the raw message")
	raw.Item.Kind = memory.KindMessage

	sourceID := raw.Item.ID
	summary := textCandidate("summary of the message")
	summary.Item.Kind = memory.KindSummary
	summary.Item.SourceID = &sourceID

	out := forge.Deduplicate([]forge.Candidate{raw, summary})
	require.Len(t, out, 1)
	require.Equal(t, summary.Item.ID, out[0].Item.ID)
}

func TestDeduplicateSummarizesMetadata(t *testing.T) {
	first := textCandidate("first turn")
	first.Item.Kind = memory.KindMessage
	second := textCandidate("second turn")
	second.Item.Kind = memory.KindMessage
	unrelated := textCandidate("different topic")
	unrelated.Item.Kind = memory.KindMessage

	summary := textCandidate("condenses both turns")
	summary.Item.Kind = memory.KindSummary
	summary.Item.Metadata = map[string]any{
		forge.SummarizesKey: []string{first.Item.ID.String(), second.Item.ID.String()},
	}

	out := forge.Deduplicate([]forge.Candidate{first, summary, second, unrelated})
	require.Len(t, out, 2)
	require.Equal(t, summary.Item.ID, out[0].Item.ID)
	require.Equal(t, unrelated.Item.ID, out[1].Item.ID)
}

func TestDeduplicateMetadataFromJSONRoundTrip(t *testing.T) {
	raw := textCandidate("persisted turn")
	raw.Item.Kind = memory.KindMessage

	// JSON storage turns []string into []any.
	summary := textCandidate("summary")
	summary.Item.Kind = memory.KindSummary
	summary.Item.Metadata = map[string]any{
		forge.SummarizesKey: []any{raw.Item.ID.String()},
	}

	out := forge.Deduplicate([]forge.Candidate{raw, summary})
	require.Len(t, out, 1)
	require.Equal(t, summary.Item.ID, out[0].Item.ID)
}

func TestDeduplicateDropsExactDuplicates(t *testing.T) {
	c := textCandidate("seen twice")
	out := forge.Deduplicate([]forge.Candidate{c, c})
	require.Len(t, out, 1)
}

func TestDeduplicateDropsDerivedSiblings(t *testing.T) {
	turnID := uuid.New()

	derived := textCandidate("message derived from the turn")
	derived.Item.Kind = memory.KindMessage
	derived.Item.SourceID = &turnID

	summary := textCandidate("summary of the turn")
	summary.Item.Kind = memory.KindSummary
	summary.Item.SourceID = &turnID

	out := forge.Deduplicate([]forge.Candidate{derived, summary})
	require.Len(t, out, 1)
	require.Equal(t, summary.Item.ID, out[0].Item.ID)
}

func TestDeduplicateKeepsUnrelated(t *testing.T) {
	a := textCandidate("a")
	b := textCandidate("b")
	out := forge.Deduplicate([]forge.Candidate{a, b})
	require.Len(t, out, 2)
}

package forge

import (
	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/memory"
)

// SummarizesKey is the metadata key under which a summary lists the ids of
// the items it condenses.
const SummarizesKey = "summarizes"

// Deduplicate drops candidates superseded by a summary that is also present:
// when a summary's source_id back-reference or its summarizes metadata names
// another candidate, only the summary survives. Exact id duplicates collapse
// to their first occurrence.
func Deduplicate(candidates []Candidate) []Candidate {
	superseded := make(map[uuid.UUID]bool)
	for _, c := range candidates {
		if c.Item.Kind != memory.KindSummary {
			continue
		}
		if c.Item.SourceID != nil {
			superseded[*c.Item.SourceID] = true
		}
		for _, id := range summarizedIDs(c.Item) {
			superseded[id] = true
		}
	}

	seen := make(map[uuid.UUID]bool)
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.Item.ID] || superseded[c.Item.ID] {
			continue
		}
		// A raw message is also superseded when a present summary condenses
		// the turn it was derived from.
		if c.Item.SourceID != nil && superseded[*c.Item.SourceID] && c.Item.Kind != memory.KindSummary {
			continue
		}
		seen[c.Item.ID] = true
		out = append(out, c)
	}
	return out
}

func summarizedIDs(item *memory.MemoryItem) []uuid.UUID {
	raw, ok := item.Metadata[SummarizesKey]
	if !ok {
		return nil
	}

	var ids []uuid.UUID
	switch v := raw.(type) {
	case []string:
		for _, s := range v {
			if id, err := uuid.Parse(s); err == nil {
				ids = append(ids, id)
			}
		}
	case []any:
		// Metadata round-tripped through JSON storage loses the slice type.
		for _, e := range v {
			if s, ok := e.(string); ok {
				if id, err := uuid.Parse(s); err == nil {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

package memory

// DetermineRing decides which tier an item belongs in. It is a pure function
// of (kind, importance, override); explicit overrides always win.
//
//   - importance >= 0.7, or kind in {fact, entity} flagged long-term -> long_term
//   - importance >= 0.5, or kind in {summary, procedure}             -> short_term
//   - otherwise                                                      -> in_session
func DetermineRing(kind Kind, importance float64, override *Ring) Ring {
	if override != nil && override.Valid() {
		return *override
	}

	switch {
	case importance >= 0.7:
		return RingLongTerm
	case importance >= 0.5:
		return RingShortTerm
	case kind == KindSummary || kind == KindProcedure:
		return RingShortTerm
	default:
		return RingInSession
	}
}

// LongTermFlag is the metadata key that marks a fact or entity for immediate
// long-term placement regardless of its importance score.
const LongTermFlag = "long_term"

// PlacementFor applies DetermineRing to a concrete item, honoring the
// long-term metadata flag for facts and entities.
func PlacementFor(item *MemoryItem, override *Ring) Ring {
	if override == nil && (item.Kind == KindFact || item.Kind == KindEntity) {
		if v, ok := item.Metadata[LongTermFlag].(bool); ok && v {
			lt := RingLongTerm
			return DetermineRing(item.Kind, item.Importance, &lt)
		}
	}
	return DetermineRing(item.Kind, item.Importance, override)
}

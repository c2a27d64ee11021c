package memory_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/memory"
)

func TestDetermineRing(t *testing.T) {
	tests := []struct {
		name       string
		kind       memory.Kind
		importance float64
		expected   memory.Ring
	}{
		{"low importance message", memory.KindMessage, 0.3, memory.RingInSession},
		{"mid importance message", memory.KindMessage, 0.5, memory.RingShortTerm},
		{"high importance message", memory.KindMessage, 0.7, memory.RingLongTerm},
		{"importance just below short term", memory.KindMessage, 0.49, memory.RingInSession},
		{"importance just below long term", memory.KindFact, 0.69, memory.RingShortTerm},
		{"summary defaults to short term", memory.KindSummary, 0.2, memory.RingShortTerm},
		{"procedure defaults to short term", memory.KindProcedure, 0.1, memory.RingShortTerm},
		{"important summary goes long term", memory.KindSummary, 0.9, memory.RingLongTerm},
		{"low importance fact stays in session", memory.KindFact, 0.2, memory.RingInSession},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, memory.DetermineRing(tt.kind, tt.importance, nil))
		})
	}
}

func TestDetermineRingOverrideWins(t *testing.T) {
	override := memory.RingLongTerm
	require.Equal(t, memory.RingLongTerm, memory.DetermineRing(memory.KindMessage, 0.1, &override))

	override = memory.RingInSession
	require.Equal(t, memory.RingInSession, memory.DetermineRing(memory.KindFact, 0.99, &override))
}

func TestDetermineRingInvalidOverrideIgnored(t *testing.T) {
	bogus := memory.Ring("archive")
	require.Equal(t, memory.RingInSession, memory.DetermineRing(memory.KindMessage, 0.1, &bogus))
}

func TestDetermineRingIsDeterministic(t *testing.T) {
	for _, kind := range []memory.Kind{
		memory.KindMessage, memory.KindSummary, memory.KindEntity,
		memory.KindFact, memory.KindProcedure,
	} {
		for _, importance := range []float64{0, 0.3, 0.5, 0.69, 0.7, 1} {
			first := memory.DetermineRing(kind, importance, nil)
			for i := 0; i < 10; i++ {
				require.Equal(t, first, memory.DetermineRing(kind, importance, nil),
					"kind=%s importance=%v", kind, importance)
			}
		}
	}
}

func TestPlacementForLongTermFlag(t *testing.T) {
	fact := &memory.MemoryItem{
		Kind:       memory.KindFact,
		Importance: 0.4,
		Metadata:   map[string]any{memory.LongTermFlag: true},
	}
	require.Equal(t, memory.RingLongTerm, memory.PlacementFor(fact, nil))

	// The flag only applies to facts and entities.
	msg := &memory.MemoryItem{
		Kind:       memory.KindMessage,
		Importance: 0.4,
		Metadata:   map[string]any{memory.LongTermFlag: true},
	}
	require.Equal(t, memory.RingInSession, memory.PlacementFor(msg, nil))

	// An explicit override still wins over the flag.
	override := memory.RingShortTerm
	require.Equal(t, memory.RingShortTerm, memory.PlacementFor(fact, &override))
}

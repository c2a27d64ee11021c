// Package memory implements the tiered memory data model and its ring stores.
package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/errors"
)

type (
	// Ring is the logical tier a MemoryItem belongs to. The value is
	// denormalized onto the item and must always agree with the physical tier
	// the item is stored in.
	Ring string

	// Kind is the memory category of an item.
	Kind string

	// Role of a turn in the chat transcript.
	Role string
)

const (
	RingInSession Ring = "in_session"
	RingShortTerm Ring = "short_term"
	RingLongTerm  Ring = "long_term"

	KindMessage   Kind = "message"
	KindSummary   Kind = "summary"
	KindEntity    Kind = "entity"
	KindFact      Kind = "fact"
	KindProcedure Kind = "procedure"

	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Rings lists all tiers ordered from most to least volatile.
var Rings = []Ring{RingInSession, RingShortTerm, RingLongTerm}

func (r Ring) Valid() bool {
	switch r {
	case RingInSession, RingShortTerm, RingLongTerm:
		return true
	}
	return false
}

// Next returns the longer-retention ring above r, or false from the top tier.
func (r Ring) Next() (Ring, bool) {
	switch r {
	case RingInSession:
		return RingShortTerm, true
	case RingShortTerm:
		return RingLongTerm, true
	}
	return "", false
}

func (k Kind) Valid() bool {
	switch k {
	case KindMessage, KindSummary, KindEntity, KindFact, KindProcedure:
		return true
	}
	return false
}

type (
	// Turn is a single utterance in a chat session.
	Turn struct {
		ID        uuid.UUID `json:"id"`
		SessionID uuid.UUID `json:"sessionId"`
		Role      Role      `json:"role"`
		Content   string    `json:"content"`
		Embedding []float32 `json:"-"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// MemoryItem is the atomic unit of memory, independent of the tier that
	// stores it.
	MemoryItem struct {
		ID uuid.UUID `json:"id"`

		// SourceID is a weak back-reference to the record this item was
		// derived from. It carries no lifetime implication.
		SourceID *uuid.UUID `json:"sourceId,omitempty"`

		// SessionID is absent for cross-session (long-term) items.
		SessionID *uuid.UUID `json:"sessionId,omitempty"`

		Kind       Kind    `json:"kind"`
		Content    string  `json:"content"`
		Importance float64 `json:"importance"`
		Ring       Ring    `json:"ring"`

		CreatedAt      time.Time `json:"createdAt"`
		LastAccessedAt time.Time `json:"lastAccessedAt"`

		Metadata map[string]any `json:"metadata,omitempty"`

		Embedding []float32 `json:"-"`
	}

	// ScoredItem pairs an item with its vector similarity score.
	ScoredItem struct {
		Item  *MemoryItem `json:"item"`
		Score float64     `json:"score"`
	}

	// Filter narrows Query and VectorSearch results.
	Filter struct {
		// SessionID restricts results to one session. Nil means all sessions;
		// the in-session ring rejects that at the interface level.
		SessionID *uuid.UUID

		// Kinds restricts results to the listed categories. Empty means all.
		Kinds []Kind

		// Before restricts results to items created strictly before the given
		// time. Zero means no bound. Used by retention scans.
		Before time.Time
	}

	// ContextBundle is the ephemeral, per-turn assembled context handed to the
	// orchestration layer. It is never persisted; its constituents already are.
	ContextBundle struct {
		SessionID         uuid.UUID      `json:"sessionId"`
		CurrentTurn       *Turn          `json:"currentTurn"`
		RecentHistory     []*Turn        `json:"recentHistory"`
		RetrievedMemories []*MemoryItem  `json:"retrievedMemories"`
		RelatedEntities   []string       `json:"relatedEntities,omitempty"`
		Metrics           map[string]any `json:"metrics,omitempty"`
	}
)

// NewItemFromTurn lifts a raw chat turn into a MemoryItem bound for the
// in-session ring. The role survives in metadata so the turn can be rebuilt.
func NewItemFromTurn(turn *Turn) *MemoryItem {
	sessionID := turn.SessionID
	sourceID := turn.ID
	return &MemoryItem{
		ID:             uuid.New(),
		SourceID:       &sourceID,
		SessionID:      &sessionID,
		Kind:           KindMessage,
		Content:        turn.Content,
		Importance:     0.3,
		Ring:           RingInSession,
		CreatedAt:      turn.CreatedAt,
		LastAccessedAt: turn.CreatedAt,
		Metadata:       map[string]any{"role": string(turn.Role)},
		Embedding:      turn.Embedding,
	}
}

// Turn rebuilds the chat turn a message-kind item was derived from.
func (m *MemoryItem) Turn() (*Turn, error) {
	if m.Kind != KindMessage {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "cannot convert %s item to a turn", m.Kind)
	}

	role := RoleUser
	if v, ok := m.Metadata["role"].(string); ok {
		role = Role(v)
	}

	turn := &Turn{
		ID:        m.ID,
		Role:      role,
		Content:   m.Content,
		Embedding: m.Embedding,
		CreatedAt: m.CreatedAt,
	}
	if m.SourceID != nil {
		turn.ID = *m.SourceID
	}
	if m.SessionID != nil {
		turn.SessionID = *m.SessionID
	}
	return turn, nil
}

// Clone returns a deep-enough copy for cross-ring migration: scalar fields are
// copied, metadata is shallow-copied, the embedding is shared.
func (m *MemoryItem) Clone() *MemoryItem {
	out := *m
	if m.Metadata != nil {
		out.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

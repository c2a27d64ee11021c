// Package event defines the domain events published by memory writers and
// consumed by maintenance workers, plus the in-process bus carrying them.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a closed set of immutable, timestamped variants. Events carry only
// identifiers and minimal payload to keep the bus cheap; the sealed marker
// keeps the set exhaustive for switch statements.
type Event interface {
	OccurredAt() time.Time
	sealed()
}

type base struct {
	At time.Time
}

func (b base) OccurredAt() time.Time { return b.At }
func (base) sealed()                 {}

type (
	// NewTurn marks a turn appended to a session.
	NewTurn struct {
		base
		SessionID uuid.UUID
		TurnID    uuid.UUID
		Role      string
	}

	// MemoryWritten marks an item persisted into a ring.
	MemoryWritten struct {
		base
		ItemID    uuid.UUID
		SessionID *uuid.UUID
		Ring      string
		Kind      string
	}

	// TokensExceeded marks a turn whose assembled context hit the token
	// budget; the summarizer uses it as a condensation trigger.
	TokensExceeded struct {
		base
		SessionID uuid.UUID
		Tokens    int
	}

	// PeriodicTick is the scheduler's fallback trigger so workers are never
	// starved in an idle system.
	PeriodicTick struct {
		base
		Name string
	}
)

func NewNewTurn(sessionID, turnID uuid.UUID, role string) NewTurn {
	return NewTurn{base: base{At: time.Now()}, SessionID: sessionID, TurnID: turnID, Role: role}
}

func NewMemoryWritten(itemID uuid.UUID, sessionID *uuid.UUID, ring, kind string) MemoryWritten {
	return MemoryWritten{base: base{At: time.Now()}, ItemID: itemID, SessionID: sessionID, Ring: ring, Kind: kind}
}

func NewTokensExceeded(sessionID uuid.UUID, tokens int) TokensExceeded {
	return TokensExceeded{base: base{At: time.Now()}, SessionID: sessionID, Tokens: tokens}
}

func NewPeriodicTick(name string) PeriodicTick {
	return PeriodicTick{base: base{At: time.Now()}, Name: name}
}

package errors

import (
	"fmt"
)

var (
	// ErrNotFound is returned by ring stores when an item id does not exist.
	ErrNotFound = fmt.Errorf("memring: not found")

	// ErrInvalidParams indicates a malformed request (empty id, bad ring, ...).
	ErrInvalidParams = fmt.Errorf("memring: invalid params")

	// ErrInvariantViolation indicates an item whose ring tag disagrees with the
	// tier it is physically stored in. It aborts the affected write and must
	// surface to the caller; it means a placement or migration bug.
	ErrInvariantViolation = fmt.Errorf("memring: ring invariant violation")

	// ErrSourceUnavailable marks a retrieval source that is down or timed out.
	// The forge recovers from it locally with an empty partial result.
	ErrSourceUnavailable = fmt.Errorf("memring: source unavailable")

	// ErrSessionScope is returned when a session-scoped ring receives a query
	// for a different session than it is allowed to serve.
	ErrSessionScope = fmt.Errorf("memring: cross-session query on session-scoped ring")
)

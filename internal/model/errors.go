package model

import "errors"

// Error taxonomy (§7). These are semantic kinds, not exception types:
// callers compare with errors.Is, and ProcessingFailure/
// CollaboratorFailure never escape the Image Pipeline (they are
// absorbed into image status, see internal/pipeline).
var (
	// ErrNotFound: an entity with the requested identifier does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAllowedAction: a lifecycle transition or mutation violates
	// the state machine or locking.
	ErrNotAllowedAction = errors.New("action not allowed")

	// ErrInvariantViolation: a bug - the graph contains an edge the
	// schema disallows, or an attribute's payload mismatches its
	// variant. Fatal to the request; never silently corrected.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrQueueFull is the typed backpressure error from §5.
	ErrQueueFull = errors.New("queue full")

	// ErrAmbiguousMapper reports the single-owner-rule violation: two
	// mapper groups on the same project both claim the same
	// root_attribute_schema_uid.
	ErrAmbiguousMapper = errors.New("ambiguous mapper: root attribute schema already owned by another mapper group")

	// ErrCycle: the Item Store rejected an edge that would introduce a
	// cycle in the sample DAG (§9).
	ErrCycle = errors.New("would introduce a cycle in the sample graph")
)

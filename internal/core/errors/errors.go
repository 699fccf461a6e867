// Package errors provides centralized error definitions for the curator.
// Errors are organized by domain to avoid duplication and provide
// consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Typed errors: Use where callers need structured fields via errors.As
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
)

// Circuit breaker errors.
var (
	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Entity lookup errors.
var (
	// ErrChannelNotFound indicates a channel could not be found.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrMessageNotFound indicates a message could not be found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Disposition bookkeeping errors.
var (
	// ErrDispositionConflict indicates an attempt to overwrite one terminal
	// disposition with a different one. Re-marking the same terminal
	// disposition is a no-op and does not raise this error.
	ErrDispositionConflict = errors.New("conflicting terminal disposition")

	// ErrInvalidDisposition indicates an unknown disposition value.
	ErrInvalidDisposition = errors.New("invalid disposition")
)

// Run coordination errors.
var (
	// ErrRunLockHeld indicates another curation run holds the advisory lock.
	ErrRunLockHeld = errors.New("run lock held by another process")
)

// Response and parsing errors.
var (
	// ErrEmptyResponse indicates an empty response was received.
	ErrEmptyResponse = errors.New("empty response")

	// ErrNoJSONPayload indicates no JSON payload could be located in a model reply.
	ErrNoJSONPayload = errors.New("no json payload in response")
)

// Validation errors.
var (
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCategory indicates a malformed category definition.
	ErrInvalidCategory = errors.New("invalid category definition")
)

// Moderation errors.
var (
	// ErrSessionResolved indicates an operation on an already resolved session.
	ErrSessionResolved = errors.New("moderation session already resolved")
)

// EmbeddingFailure reports a failed embedding batch. The batch size lets
// the pipeline stage the affected messages as errored.
type EmbeddingFailure struct {
	BatchSize int
	Err       error
}

func (e *EmbeddingFailure) Error() string {
	return fmt.Sprintf("embedding batch of %d failed: %v", e.BatchSize, e.Err)
}

func (e *EmbeddingFailure) Unwrap() error { return e.Err }

// SelectionSchemaError reports a selection reply whose payload could not be
// parsed at all. Individually invalid items are dropped, not raised.
type SelectionSchemaError struct {
	Chunk int
	Raw   string
	Err   error
}

func (e *SelectionSchemaError) Error() string {
	return fmt.Sprintf("selection chunk %d returned unparseable payload: %v", e.Chunk, e.Err)
}

func (e *SelectionSchemaError) Unwrap() error { return e.Err }

// ConcurrentModerationError reports an attempt to open a moderation session
// for a category that already has one pending.
type ConcurrentModerationError struct {
	Category  string
	SessionID string
}

func (e *ConcurrentModerationError) Error() string {
	return fmt.Sprintf("moderation session %s already pending for category %s", e.SessionID, e.Category)
}

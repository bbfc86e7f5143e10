// Package apperr defines the error taxonomy shared by the orchestrator, the
// background workers and the HTTP layer. Errors are classified by wrapping one
// of these sentinels with %w and checked with errors.Is.
package apperr

import "errors"

var (
	// ErrNotFound covers missing entities and unauthorized access alike, so
	// callers cannot probe for the existence of other users' sessions.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState signals a state-machine violation (e.g. starting an
	// interview twice, submitting to a cancelled session).
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation signals malformed input rejected before any side effect.
	ErrValidation = errors.New("validation failed")

	ErrProviderUnavailable     = errors.New("provider unavailable")
	ErrProviderTimeout         = errors.New("provider timeout")
	ErrProviderInvalidResponse = errors.New("provider returned an invalid response")

	// ErrStorage covers repository and object-store I/O failures.
	ErrStorage = errors.New("storage failure")

	// ErrJobExhausted marks a background job that spent all its retries.
	ErrJobExhausted = errors.New("job retries exhausted")
)

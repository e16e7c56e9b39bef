package models

import "errors"

// Engine error kinds. Handlers and the scheduler match these with errors.Is
// to decide between "not yet analyzable", skip-and-continue, and retry.
var (
	// ErrInsufficientData means too few events or answers exist for a
	// meaningful verdict. Recoverable: report "not yet analyzable".
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// ErrMalformedInput marks an event or answer row that cannot be parsed.
	// The offending row is skipped and logged; analysis continues.
	ErrMalformedInput = errors.New("malformed input row")

	// ErrExternalScorerUnavailable means the text-quality service timed out
	// or failed. The method is excluded and the composite recomputed; it is
	// never silently treated as a 0 or 1.
	ErrExternalScorerUnavailable = errors.New("external scorer unavailable")

	// ErrPersistenceFailure wraps result-write failures. Analysis itself is
	// idempotent, so callers retry with backoff.
	ErrPersistenceFailure = errors.New("persistence failure")
)

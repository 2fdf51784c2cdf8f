// Package errs holds the sentinel errors shared by the analysis pipeline.
// Callers match them with errors.Is.
package errs

import "errors"

var (
	// ErrMalformedInput means the event stream broke an ordering or typing contract.
	// The whole match is rejected.
	ErrMalformedInput = errors.New("malformed input")

	// ErrInsufficientData marks a legitimate match state with too little evidence. It is
	// recovered with a sentinel value and never aborts a match.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrConfiguration means a threshold is missing or invalid.
	ErrConfiguration = errors.New("configuration error")

	// ErrRuleConflict means an invariant that holds by construction was violated.
	ErrRuleConflict = errors.New("rule conflict")
)

package models

import "errors"

// Error taxonomy shared by every layer. Callers classify with errors.Is and
// wrap with fmt.Errorf("detail: %w", ...) to add context.
var (
	// ErrValidation marks malformed input: non-member payer or consumer,
	// non-positive price or quantity, paid/used totals that do not match.
	// Always recoverable; no state is mutated.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a permission failure under the group's settings.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound marks a missing group, person, transaction, or item.
	ErrNotFound = errors.New("not found")

	// ErrConsistency marks a broken apply/revert invariant. It signals a
	// programming bug, never bad input, and is logged loudly when raised.
	ErrConsistency = errors.New("consistency violation")
)

package exchange

import "errors"

// Error kinds surfaced to callers of order, position and account
// operations. Wrap with context, test with errors.Is.
var (
	// ErrValidation covers malformed or unsatisfiable requests: unknown or
	// inactive symbol, non-positive quantity, quantity below the minimum
	// lot, a limit order without a limit price.
	ErrValidation = errors.New("validation failed")

	// ErrPriceUnavailable means no tick exists yet for the instrument.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrNotFound means the referenced account, order or position does not
	// exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientState is an internal invariant violation, for example
	// a close that would drive quantity negative. The operation aborts
	// without partial mutation.
	ErrInsufficientState = errors.New("insufficient state")
)

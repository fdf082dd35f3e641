package dex

import (
	"errors"
	"fmt"
)

// Error kinds the rest of the system matches on with errors.Is. Order-level
// failures wrap one of these and are returned to the caller, never escalated.
var (
	// ErrValidation marks orders rejected before any side effect: malformed,
	// expired, or outside the pair's step/min/max restrictions.
	ErrValidation = errors.New("order validation failed")

	// ErrInsufficientBalance marks a reservation that would exceed the
	// address's tradable balance. Nothing is reserved.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrOrderNotFound is returned for cancels and status queries against
	// an unknown or already-terminal order id.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAssetNotFound is returned for an unknown asset in a pair, rate
	// request, or metadata lookup.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrRateImmutable is returned on any attempt to change or delete the
	// native currency's conversion rate.
	ErrRateImmutable = errors.New("the native rate cannot be changed")

	// ErrRateInvalid is returned when an upserted rate is not strictly
	// positive.
	ErrRateInvalid = errors.New("rate must be positive")

	// ErrRecovery marks corrupt or missing persisted state discovered at
	// startup. It is fatal: a book must not be served from state it cannot
	// trust, nor silently started empty when a snapshot existed.
	ErrRecovery = errors.New("recovery failed")

	// ErrOracleUnavailable marks a balance oracle failure that persisted
	// through the retry budget.
	ErrOracleUnavailable = errors.New("balance oracle unavailable")
)

// Validationf builds a wrapped validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

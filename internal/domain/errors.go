package domain

import "errors"

var (
	// ErrProviderAuth means the credential exchange with the inventory
	// provider failed. No fallback exists; the current operation fails.
	ErrProviderAuth = errors.New("provider authentication failed")

	// ErrProviderBooking marks an order submission the provider rejected.
	ErrProviderBooking = errors.New("provider rejected the order")

	// ErrPersistence means the booking row could not be written for a
	// reason other than the ownership constraint. Surfaced to the caller.
	ErrPersistence = errors.New("failed to persist booking")

	// ErrQuoteExpired is returned when a quote is accepted past its
	// validity window.
	ErrQuoteExpired = errors.New("quote has expired")

	// ErrQuoteTransition is returned for transitions out of a terminal
	// or wrong quote state.
	ErrQuoteTransition = errors.New("illegal quote transition")

	// ErrCancellationUnreachable means the orchestrated cancel+refund
	// path could not be completed; cancellation falls back to the
	// inventory-only path.
	ErrCancellationUnreachable = errors.New("cancellation orchestration unreachable")

	ErrNotFound         = errors.New("not found")
	ErrDuplicateRequest = errors.New("duplicate request")
)

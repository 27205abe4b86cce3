package engine

import (
	"errors"
)

// Every error below is terminal for the current action: the submission is
// rejected, the state is left untouched, and nothing is retried internally.
var (
	// ErrRecipientMismatch means a deposit's transfer assertion targets a
	// contract other than this one.
	ErrRecipientMismatch = errors.New("transfer recipient mismatch")

	// ErrUnsupportedAction means a deposit carried a token action variant
	// other than the plain transfer.
	ErrUnsupportedAction = errors.New("unsupported token action")

	// ErrInsufficientBalance means an order's required reserve exceeds the
	// caller's current balance. Raised strictly before any state mutation.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidOrder means the order failed boundary validation (unknown
	// side, zero quantity, or non-positive price).
	ErrInvalidOrder = errors.New("invalid order")

	// ErrNotRegistered means an action arrived before the contract was
	// registered with a base asset.
	ErrNotRegistered = errors.New("orderbook not registered")

	// ErrAlreadyRegistered means a second register action was submitted.
	ErrAlreadyRegistered = errors.New("orderbook already registered")
)

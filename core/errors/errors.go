// Package errors defines the error kinds shared by the settlement modules.
// Every kind aborts the enclosing unit of work; callers match them with
// errors.Is after any amount of wrapping.
package errors

import stderrors "errors"

var (
	// ErrNotFound signals a missing queue node or record. Inside the queue it
	// indicates corrupted linkage rather than a user mistake.
	ErrNotFound = stderrors.New("liquidstake: not found")
	// ErrUnauthorized is returned when the sender is not the module owner.
	ErrUnauthorized = stderrors.New("liquidstake: unauthorized")
	// ErrEmptyBalance is returned when the request carries no funds in the
	// required denomination.
	ErrEmptyBalance = stderrors.New("liquidstake: no funds sent in bond denom")
	// ErrArithmeticOverflow is returned when a checked add or multiply wraps.
	ErrArithmeticOverflow = stderrors.New("liquidstake: arithmetic overflow")
	// ErrArithmeticUnderflow is returned when a checked subtraction wraps.
	ErrArithmeticUnderflow = stderrors.New("liquidstake: arithmetic underflow")
	// ErrDivisionByZero is returned by ratio math with a zero denominator
	// where no fallback applies.
	ErrDivisionByZero = stderrors.New("liquidstake: division by zero")
	// ErrInsufficientLiquidity is returned when an order needs more value
	// than the queue holds.
	ErrInsufficientLiquidity = stderrors.New("liquidstake: insufficient liquidity")
	// ErrInsufficientFunds is returned when an account balance cannot cover
	// a transfer.
	ErrInsufficientFunds = stderrors.New("liquidstake: insufficient funds")
	// ErrNothingToClaim is returned when the sender has no settled value.
	ErrNothingToClaim = stderrors.New("liquidstake: nothing to claim")
	// ErrNothingToRemove is returned when the sender has no active position.
	ErrNothingToRemove = stderrors.New("liquidstake: nothing to remove")
	// ErrInvalidAmount is returned for zero or malformed amounts.
	ErrInvalidAmount = stderrors.New("liquidstake: amount must be positive")
	// ErrOrderTooSmall is returned when an order converts to zero queue units.
	ErrOrderTooSmall = stderrors.New("liquidstake: order too small to fill")
	// ErrQueueEmpty is returned when removing from an empty queue.
	ErrQueueEmpty = stderrors.New("liquidstake: queue empty")
	// ErrModulePaused is returned while an owner has paused a module.
	ErrModulePaused = stderrors.New("liquidstake: module paused")
)

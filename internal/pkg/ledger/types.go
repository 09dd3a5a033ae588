package ledger

import "errors"

// ApplyResult reports the outcome of an idempotent payment application.
// Applied is false when the event was already recorded; Balance is the
// account balance after the call either way.
type ApplyResult struct {
	Applied bool
	Balance int64
}

var (
	// ErrInsufficientCredits is returned by Debit when the balance is zero.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrInvalidCredits is returned for negative balances or non-positive
	// payment amounts.
	ErrInvalidCredits = errors.New("invalid credits amount")
)

package ledger

import "errors"

// Ledger errors. Input and state errors are checked before any mutation and
// abort the whole operation. ErrInvariantViolation wraps arithmetic failures
// that occur after all checks have passed; they indicate an accounting bug
// and must be treated as fatal by callers.
var (
	// ErrZeroAddress is returned when a transfer endpoint or delegator is
	// the zero address.
	ErrZeroAddress = errors.New("zero address")

	// ErrInsufficientBalance is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a transferFrom exceeds the
	// stored allowance.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrNotYetDetermined is returned by prior-votes queries at or beyond
	// the current block. The caller must retry once the block has settled.
	ErrNotYetDetermined = errors.New("votes not yet determined")

	// ErrNotAdmin is returned when a non-admin calls an administrative
	// operation.
	ErrNotAdmin = errors.New("caller is not the token admin")

	// ErrInvariantViolation marks unrecoverable accounting failures.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

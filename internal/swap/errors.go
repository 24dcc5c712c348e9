package swap

import "errors"

// Pool errors.
var (
	// ErrZeroAmount is returned when a swap is requested for zero tokens.
	ErrZeroAmount = errors.New("zero swap amount")

	// ErrInvalidDirection is returned for an unknown swap direction.
	ErrInvalidDirection = errors.New("invalid swap direction")

	// ErrNotEligible is returned when the eligibility lookup reports tier 0.
	ErrNotEligible = errors.New("account is not eligible")

	// ErrInsufficientProvision is returned when an account's combined token
	// balance is below the pool's minimum threshold.
	ErrInsufficientProvision = errors.New("combined balance below minimum provision")

	// ErrExceedsTierLimit is returned when a swap would push an account's
	// cumulative investment past its tier limit.
	ErrExceedsTierLimit = errors.New("cumulative investment exceeds tier limit")

	// ErrInsufficientPoolInventory is returned when the outbound side holds
	// fewer tokens than requested.
	ErrInsufficientPoolInventory = errors.New("insufficient pool inventory")

	// ErrPoolClosed is returned when a swap is attempted after the owner
	// withdrew the remaining inventory.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrNotOwner is returned when a non-owner calls an owner operation.
	ErrNotOwner = errors.New("caller is not the pool owner")

	// ErrSettlementFailed marks a dual-leg settlement that could not be
	// rolled back. It indicates an accounting bug and is unrecoverable.
	ErrSettlementFailed = errors.New("swap settlement failed and could not be rolled back")
)

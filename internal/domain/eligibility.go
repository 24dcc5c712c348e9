package domain

import "github.com/holiman/uint256"

// EligibilityResult is the snapshot returned by an eligibility lookup.
// Tier 0 means the account is not eligible at all. A zero (or nil) limit
// means the tier carries no investment cap.
type EligibilityResult struct {
	Tier  uint8
	Limit *uint256.Int
}

// Eligible reports whether the account may participate.
func (r EligibilityResult) Eligible() bool {
	return r.Tier > 0
}

// Unlimited reports whether the tier carries no investment cap.
func (r EligibilityResult) Unlimited() bool {
	return r.Limit == nil || r.Limit.IsZero()
}

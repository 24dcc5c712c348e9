// Package eligibility supplies the tier and investment-limit lookups the
// swap pool gates on. A memory implementation serves tests and single-node
// deployments; the postgres implementation reads a shared tier table.
package eligibility

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
)

// ErrLookupFailed wraps backend failures during a lookup.
var ErrLookupFailed = errors.New("eligibility lookup failed")

// Provider resolves an account's eligibility snapshot. Accounts with no
// record resolve to tier 0 (not eligible), not an error.
type Provider interface {
	Lookup(ctx context.Context, account common.Address) (domain.EligibilityResult, error)
}

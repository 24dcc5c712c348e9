package eligibility

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/storage"
	"github.com/ArcticSubmarine/smart-contracts/internal/storage/postgres"
)

// Postgres reads the eligibility tier table. Accounts without a row resolve
// to tier 0.
type Postgres struct {
	pool *postgres.Pool
}

// NewPostgres creates a provider backed by pool.
func NewPostgres(pool *postgres.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Compile-time interface check.
var _ Provider = (*Postgres)(nil)

// Lookup returns account's tier snapshot.
func (p *Postgres) Lookup(ctx context.Context, account common.Address) (domain.EligibilityResult, error) {
	query := `
		SELECT tier, invest_limit::text
		FROM eligibility
		WHERE account = $1
	`

	var (
		tier  int16
		limit string
	)
	err := p.pool.QueryRow(ctx, query, account.Hex()).Scan(&tier, &limit)
	if err != nil {
		if postgres.IsNotFoundError(err) {
			return domain.EligibilityResult{}, nil
		}
		return domain.EligibilityResult{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	lim, err := uint256.FromDecimal(limit)
	if err != nil {
		return domain.EligibilityResult{}, fmt.Errorf("%w: bad invest_limit %q: %v", ErrLookupFailed, limit, err)
	}

	return domain.EligibilityResult{Tier: uint8(tier), Limit: lim}, nil
}

// Upsert records or overwrites account's tier and limit. A nil limit stores
// zero, meaning no cap. This is the administrative write path; the pool only
// reads.
func (p *Postgres) Upsert(ctx context.Context, account common.Address, tier uint8, limit *uint256.Int) error {
	query := `
		INSERT INTO eligibility (account, tier, invest_limit, updated_at)
		VALUES ($1, $2, $3::numeric, now())
		ON CONFLICT (account) DO UPDATE
		SET tier = EXCLUDED.tier, invest_limit = EXCLUDED.invest_limit, updated_at = now()
	`

	lim := "0"
	if limit != nil {
		lim = limit.Dec()
	}
	if _, err := p.pool.Exec(ctx, query, account.Hex(), int16(tier), lim); err != nil {
		return fmt.Errorf("upsert eligibility: %w", err)
	}
	return nil
}

// Delete removes account's record, reverting it to tier 0. Deleting an
// unknown account returns storage.ErrNotFound.
func (p *Postgres) Delete(ctx context.Context, account common.Address) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM eligibility WHERE account = $1`, account.Hex())
	if err != nil {
		return fmt.Errorf("delete eligibility: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

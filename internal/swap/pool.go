// Package swap implements the two-way bridge between two token ledgers:
// pooled inventory on both sides, tier-gated eligibility with per-account
// cumulative investment caps, and atomic paired settlement.
//
// Like the token ledger, the pool is a sequential state machine with no
// internal locking; callers serialize mutating operations.
package swap

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/eligibility"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/fixedpoint"
	"github.com/ArcticSubmarine/smart-contracts/internal/ledger"
)

// TokenContract is the capability the pool needs from each side's token.
// *ledger.Token satisfies it.
type TokenContract interface {
	Transfer(caller, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	Approve(owner, spender common.Address, amount *uint256.Int) error
	Allowance(owner, spender common.Address) *uint256.Int
	BalanceOf(account common.Address) *uint256.Int
}

// PoolConfig configures a swap pool.
type PoolConfig struct {
	// Account is the pool's ledger account. It holds the inventory on both
	// tokens and acts as the spender for inbound pulls, so callers approve
	// it before swapping.
	Account common.Address

	// Owner may close the pool and restock inventory.
	Owner common.Address

	TokenA TokenContract
	TokenB TokenContract

	// Eligibility gates every swap; tier 0 accounts are rejected.
	Eligibility eligibility.Provider

	// MinProvision is the minimum combined balance (token A plus token B)
	// an account must hold to swap. Zero disables the threshold.
	MinProvision *uint256.Int

	// Clock stamps swap events. Defaults to a manual clock at block 1.
	Clock ledger.BlockClock

	// Sink receives swap events. Defaults to events.Discard.
	Sink events.Sink
}

// Pool tracks two-sided inventory and settles eligible swaps. Remaining
// counters start at the pool account's balances at construction and only
// change through settled swaps, restocks, and closing.
type Pool struct {
	account common.Address
	owner   common.Address
	tokenA  TokenContract
	tokenB  TokenContract

	elig         eligibility.Provider
	minProvision *uint256.Int

	remainingA *uint256.Int
	remainingB *uint256.Int
	invested   map[common.Address]*uint256.Int

	open  bool
	clock ledger.BlockClock
	sink  events.Sink
}

// NewPool creates an open pool. The pool account's current balances on both
// tokens become the initial remaining inventory.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Account == (common.Address{}) {
		return nil, fmt.Errorf("pool account: %w", ledger.ErrZeroAddress)
	}
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("pool owner: %w", ledger.ErrZeroAddress)
	}
	if cfg.TokenA == nil || cfg.TokenB == nil {
		return nil, fmt.Errorf("both token contracts are required")
	}
	if cfg.Eligibility == nil {
		return nil, fmt.Errorf("eligibility provider is required")
	}

	minProvision := uint256.NewInt(0)
	if cfg.MinProvision != nil {
		minProvision = cfg.MinProvision.Clone()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ledger.NewManualClock(1)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = events.Discard
	}

	return &Pool{
		account:      cfg.Account,
		owner:        cfg.Owner,
		tokenA:       cfg.TokenA,
		tokenB:       cfg.TokenB,
		elig:         cfg.Eligibility,
		minProvision: minProvision,
		remainingA:   cfg.TokenA.BalanceOf(cfg.Account),
		remainingB:   cfg.TokenB.BalanceOf(cfg.Account),
		invested:     make(map[common.Address]*uint256.Int),
		open:         true,
		clock:        clock,
		sink:         sink,
	}, nil
}

// Open reports whether the pool still accepts swaps.
func (p *Pool) Open() bool { return p.open }

// Account returns the pool's ledger account.
func (p *Pool) Account() common.Address { return p.account }

// RemainingA returns the token A inventory available for outbound
// settlement.
func (p *Pool) RemainingA() *uint256.Int { return p.remainingA.Clone() }

// RemainingB returns the token B inventory available for outbound
// settlement.
func (p *Pool) RemainingB() *uint256.Int { return p.remainingB.Clone() }

// Invested returns account's lifetime cumulative investment. The
// accumulator is never reset; a phase-scoped cap policy would wrap this
// accessor.
func (p *Pool) Invested(account common.Address) *uint256.Int {
	if v, ok := p.invested[account]; ok {
		return v.Clone()
	}
	return uint256.NewInt(0)
}

// ValidateEligibility checks account against the eligibility provider and
// the provision threshold. Returns the tier's investment limit; zero means
// no cap.
func (p *Pool) ValidateEligibility(ctx context.Context, account common.Address) (*uint256.Int, error) {
	res, err := p.elig.Lookup(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", account.Hex(), err)
	}
	if !res.Eligible() {
		return nil, ErrNotEligible
	}

	if !p.minProvision.IsZero() {
		combined, err := fixedpoint.Add96(p.tokenA.BalanceOf(account), p.tokenB.BalanceOf(account))
		if err != nil {
			// Both balances together exceed the 96-bit unit; any threshold
			// expressible in it is met.
			combined = fixedpoint.MaxUnit96()
		}
		if combined.Lt(p.minProvision) {
			return nil, ErrInsufficientProvision
		}
	}

	if res.Unlimited() {
		return uint256.NewInt(0), nil
	}
	return res.Limit.Clone(), nil
}

// Swap pulls amount of the inbound token from caller into the pool and
// pushes the same amount of the outbound token to account. Both legs settle
// or neither does: a failure on the outbound leg rolls the inbound pull
// back.
func (p *Pool) Swap(ctx context.Context, dir domain.SwapDirection, caller, account common.Address, amount *uint256.Int) error {
	if !p.open {
		return ErrPoolClosed
	}
	if !dir.Valid() {
		return ErrInvalidDirection
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	if amount.Gt(fixedpoint.MaxUnit96()) {
		return fixedpoint.ErrOutOfRange
	}

	limit, err := p.ValidateEligibility(ctx, caller)
	if err != nil {
		return err
	}

	projected, err := fixedpoint.Add96(p.Invested(account), amount)
	if err != nil {
		return ErrExceedsTierLimit
	}
	if !limit.IsZero() && projected.Gt(limit) {
		return ErrExceedsTierLimit
	}

	tokenIn, tokenOut := p.tokenA, p.tokenB
	remainingOut := p.remainingB
	if dir == domain.SwapBToA {
		tokenIn, tokenOut = p.tokenB, p.tokenA
		remainingOut = p.remainingA
	}

	if remainingOut.Lt(amount) {
		return ErrInsufficientPoolInventory
	}

	// Inbound leg: pull from the caller on its allowance to the pool. The
	// prior allowance is captured so a failed outbound leg can restore it.
	priorAllowance := tokenIn.Allowance(caller, p.account)
	if err := tokenIn.TransferFrom(p.account, caller, p.account, amount); err != nil {
		return fmt.Errorf("inbound leg: %w", err)
	}

	// The outbound recipient may differ from the caller; it must be
	// eligible in its own right.
	if account != caller {
		if _, err := p.ValidateEligibility(ctx, account); err != nil {
			return p.rollback(tokenIn, caller, amount, priorAllowance, err)
		}
	}

	// Outbound leg: push from the pool to the recipient.
	if err := tokenOut.Transfer(p.account, account, amount); err != nil {
		return p.rollback(tokenIn, caller, amount, priorAllowance, fmt.Errorf("outbound leg: %w", err))
	}

	next, err := fixedpoint.Sub96(remainingOut, amount)
	if err != nil {
		return fmt.Errorf("%w: inventory underflow after check: %v", ledger.ErrInvariantViolation, err)
	}
	remainingOut.Set(next)
	p.invested[account] = projected

	block, _ := fixedpoint.ToUnit32(p.clock.CurrentBlock())
	p.sink.Emit(domain.SwapExecutedEvent{
		Direction: dir,
		Caller:    caller,
		Account:   account,
		Amount:    amount.Clone(),
		Block:     block,
	})
	return nil
}

// rollback undoes a pulled inbound leg after a failed outbound leg,
// preserving both-or-neither settlement: the balance goes back to the caller
// and the caller's allowance to the pool is restored to its prior value. An
// unlimited-sentinel allowance was never decremented and is left alone.
func (p *Pool) rollback(tokenIn TokenContract, caller common.Address, amount, priorAllowance *uint256.Int, cause error) error {
	if err := tokenIn.Transfer(p.account, caller, amount); err != nil {
		return fmt.Errorf("%w: %v (rollback failed: %v)", ErrSettlementFailed, cause, err)
	}
	if !fixedpoint.IsMaxUnit96(priorAllowance) {
		if err := tokenIn.Approve(caller, p.account, priorAllowance); err != nil {
			return fmt.Errorf("%w: %v (allowance restore failed: %v)", ErrSettlementFailed, cause, err)
		}
	}
	return cause
}

// Restock pulls amount of the given side's token from the owner into the
// pool and credits the side's remaining counter. This is the refund path
// that grows inventory after construction.
func (p *Pool) Restock(caller common.Address, side domain.SwapDirection, amount *uint256.Int) error {
	if caller != p.owner {
		return ErrNotOwner
	}
	if !p.open {
		return ErrPoolClosed
	}
	if !side.Valid() {
		return ErrInvalidDirection
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}

	// side names the outbound direction being topped up: restocking A->B
	// adds token B inventory.
	token, remaining := p.tokenB, p.remainingB
	if side == domain.SwapBToA {
		token, remaining = p.tokenA, p.remainingA
	}

	if err := token.TransferFrom(p.account, p.owner, p.account, amount); err != nil {
		return fmt.Errorf("restock pull: %w", err)
	}
	next, err := fixedpoint.Add96(remaining, amount)
	if err != nil {
		return fmt.Errorf("%w: inventory overflow: %v", ledger.ErrInvariantViolation, err)
	}
	remaining.Set(next)
	return nil
}

// Close withdraws all remaining inventory to the owner and stops further
// swaps. Only the owner may close, and only once.
func (p *Pool) Close(caller common.Address) error {
	if caller != p.owner {
		return ErrNotOwner
	}
	if !p.open {
		return ErrPoolClosed
	}

	if !p.remainingA.IsZero() {
		if err := p.tokenA.Transfer(p.account, p.owner, p.remainingA); err != nil {
			return fmt.Errorf("withdraw token A inventory: %w", err)
		}
		p.remainingA.Clear()
	}
	if !p.remainingB.IsZero() {
		if err := p.tokenB.Transfer(p.account, p.owner, p.remainingB); err != nil {
			return fmt.Errorf("withdraw token B inventory: %w", err)
		}
		p.remainingB.Clear()
	}

	p.open = false
	return nil
}

// Package ledger implements the checkpointed token ledger: balance and
// allowance accounting, delegated voting weight, and block-indexed vote
// history.
//
// The ledger is a sequential state machine. No internal locking is done;
// callers must serialize mutating operations per token instance (the service
// binary holds one mutex around the whole ledger).
package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/fixedpoint"
	"github.com/ArcticSubmarine/smart-contracts/internal/policy"
)

// ReferenceResolver maps external reference codes to addresses. An
// unresolved reference is not an error: the transfer is simply not
// performed.
type ReferenceResolver interface {
	AddressForReference(ref string) (common.Address, bool)
}

// TokenConfig configures a token ledger instance.
type TokenConfig struct {
	Name     string
	Symbol   string
	Decimals uint8

	// TotalSupply is the genesis supply in the smallest denomination. It is
	// fixed for the life of the ledger and minted entirely to Genesis.
	TotalSupply *big.Int
	Genesis     common.Address

	// Admin may swap the authorization policy at runtime.
	Admin common.Address

	// Policy authorizes every balance mutation. Defaults to policy.Open.
	Policy policy.Policy

	// Clock supplies block numbers for checkpoints. Defaults to a manual
	// clock starting at block 1.
	Clock BlockClock

	// Sink receives emitted events. Defaults to events.Discard.
	Sink events.Sink

	// Registry resolves reference codes for TransferByReference. Optional.
	Registry ReferenceResolver
}

// Token owns balances, allowances, delegation and vote history for one
// token. Construct with NewToken; the struct holds all state explicitly and
// nothing is process-global.
type Token struct {
	name     string
	symbol   string
	decimals uint8

	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
	delegates   map[common.Address]common.Address

	votes    *CheckpointStore
	pol      policy.Policy
	admin    common.Address
	clock    BlockClock
	sink     events.Sink
	registry ReferenceResolver
}

// NewToken creates the ledger and mints the entire supply to the genesis
// account. The genesis mint is recorded as a transfer from the zero address.
func NewToken(cfg TokenConfig) (*Token, error) {
	if cfg.Genesis == (common.Address{}) {
		return nil, fmt.Errorf("genesis account: %w", ErrZeroAddress)
	}
	supply, err := fixedpoint.ToUnit96(cfg.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}

	pol := cfg.Policy
	if pol == nil {
		pol = policy.Open{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = NewManualClock(1)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = events.Discard
	}

	t := &Token{
		name:        cfg.Name,
		symbol:      cfg.Symbol,
		decimals:    cfg.Decimals,
		totalSupply: supply,
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
		delegates:   make(map[common.Address]common.Address),
		pol:         pol,
		admin:       cfg.Admin,
		clock:       clock,
		sink:        sink,
		registry:    cfg.Registry,
	}
	t.votes = newCheckpointStore(cfg.Symbol, clock, sink)

	t.balances[cfg.Genesis] = supply.Clone()
	t.emitTransfer(common.Address{}, cfg.Genesis, supply)
	return t, nil
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the token's decimal places.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns the fixed genesis supply.
func (t *Token) TotalSupply() *uint256.Int {
	return t.totalSupply.Clone()
}

// BalanceOf returns account's balance. Accounts persist at zero.
func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	if b, ok := t.balances[account]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

// Allowance returns the remaining allowance from owner to spender. The
// unlimited sentinel (2^96-1) is reported verbatim.
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return a.Clone()
		}
	}
	return uint256.NewInt(0)
}

// Approve overwrites the allowance from owner to spender. Approving the
// maximum 96-bit value stores the unlimited sentinel, which transferFrom
// never decrements.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) error {
	amt, err := amount96(amount)
	if err != nil {
		return err
	}
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*uint256.Int)
		t.allowances[owner] = m
	}
	m[spender] = amt.Clone()

	block, _ := fixedpoint.ToUnit32(t.clock.CurrentBlock())
	t.sink.Emit(domain.ApprovalEvent{
		Token:   t.symbol,
		Owner:   owner,
		Spender: spender,
		Amount:  amt.Clone(),
		Block:   block,
	})
	return nil
}

// Transfer moves amount from the caller to dst.
func (t *Token) Transfer(caller, dst common.Address, amount *uint256.Int) error {
	amt, err := amount96(amount)
	if err != nil {
		return err
	}
	if err := t.pol.Validate(caller, caller, dst, amt); err != nil {
		return err
	}
	return t.transferTokens(caller, dst, amt)
}

// TransferFrom moves amount from src to dst on spender's allowance. The
// allowance is decremented unless it is the unlimited sentinel.
func (t *Token) TransferFrom(spender, src, dst common.Address, amount *uint256.Int) error {
	amt, err := amount96(amount)
	if err != nil {
		return err
	}
	if err := t.pol.Validate(spender, src, dst, amt); err != nil {
		return err
	}

	allowance := t.Allowance(src, spender)
	unlimited := fixedpoint.IsMaxUnit96(allowance)
	if !unlimited && amt.Gt(allowance) {
		return ErrInsufficientAllowance
	}

	if err := t.transferTokens(src, dst, amt); err != nil {
		return err
	}

	if !unlimited {
		remaining, err := fixedpoint.Sub96(allowance, amt)
		if err != nil {
			return fmt.Errorf("%w: allowance underflow after check: %v", ErrInvariantViolation, err)
		}
		t.allowances[src][spender] = remaining
	}
	return nil
}

// TransferByReference resolves ref through the registry and transfers amount
// from the caller to the resolved address. Returns performed=false without
// error when the reference does not resolve.
func (t *Token) TransferByReference(caller common.Address, ref string, amount *uint256.Int) (bool, error) {
	if t.registry == nil {
		return false, nil
	}
	dst, ok := t.registry.AddressForReference(ref)
	if !ok {
		return false, nil
	}
	if err := t.Transfer(caller, dst, amount); err != nil {
		return false, err
	}
	return true, nil
}

// Delegate assigns delegator's voting weight to delegatee and moves the
// delegator's full balance weight from the previous delegatee. Delegating to
// the zero address clears the delegate. Re-delegating to the same delegatee
// still rewrites the mapping and emits the event.
func (t *Token) Delegate(delegator, delegatee common.Address) error {
	if delegator == (common.Address{}) {
		return fmt.Errorf("delegator: %w", ErrZeroAddress)
	}

	prev := t.delegates[delegator]
	t.delegates[delegator] = delegatee

	block, _ := fixedpoint.ToUnit32(t.clock.CurrentBlock())
	t.sink.Emit(domain.DelegateChangedEvent{
		Token:     t.symbol,
		Delegator: delegator,
		From:      prev,
		To:        delegatee,
		Block:     block,
	})

	return t.votes.MoveWeight(prev, delegatee, t.BalanceOf(delegator))
}

// DelegateOf returns the current delegatee for account, or the zero address
// when none is set.
func (t *Token) DelegateOf(account common.Address) common.Address {
	return t.delegates[account]
}

// GetCurrentVotes returns account's current voting power.
func (t *Token) GetCurrentVotes(account common.Address) *uint256.Int {
	return t.votes.GetCurrentVotes(account)
}

// GetPriorVotes returns account's voting power as of blockNumber. Fails with
// ErrNotYetDetermined unless blockNumber is strictly below the current
// block.
func (t *Token) GetPriorVotes(account common.Address, blockNumber uint32) (*uint256.Int, error) {
	return t.votes.GetPriorVotes(account, blockNumber)
}

// NumCheckpoints returns how many checkpoints account has accumulated.
func (t *Token) NumCheckpoints(account common.Address) uint32 {
	return t.votes.NumCheckpoints(account)
}

// SetPolicy swaps the authorization policy. Only the configured admin may
// call it.
func (t *Token) SetPolicy(caller common.Address, p policy.Policy) error {
	if caller != t.admin || t.admin == (common.Address{}) {
		return ErrNotAdmin
	}
	if p == nil {
		p = policy.Open{}
	}
	t.pol = p
	return nil
}

// transferTokens applies the checked debit/credit pair and propagates the
// weight change to the sender's and receiver's delegatees.
func (t *Token) transferTokens(src, dst common.Address, amt *uint256.Int) error {
	if src == (common.Address{}) || dst == (common.Address{}) {
		return ErrZeroAddress
	}

	srcBal := t.BalanceOf(src)
	if amt.Gt(srcBal) {
		return ErrInsufficientBalance
	}

	newSrc, err := fixedpoint.Sub96(srcBal, amt)
	if err != nil {
		return fmt.Errorf("%w: debit underflow after check: %v", ErrInvariantViolation, err)
	}

	// The debit lands before the credit side is read so that a self-transfer
	// credits the already-debited balance and nets out to no change.
	t.balances[src] = newSrc
	newDst, err := fixedpoint.Add96(t.BalanceOf(dst), amt)
	if err != nil {
		t.balances[src] = srcBal
		return fmt.Errorf("%w: credit overflow: %v", ErrInvariantViolation, err)
	}
	t.balances[dst] = newDst
	t.emitTransfer(src, dst, amt)

	return t.votes.MoveWeight(t.delegates[src], t.delegates[dst], amt)
}

func (t *Token) emitTransfer(src, dst common.Address, amt *uint256.Int) {
	block, _ := fixedpoint.ToUnit32(t.clock.CurrentBlock())
	t.sink.Emit(domain.TransferEvent{
		Token:  t.symbol,
		From:   src,
		To:     dst,
		Amount: amt.Clone(),
		Block:  block,
	})
}

// amount96 guards a caller-supplied quantity against the 96-bit unit.
func amount96(v *uint256.Int) (*uint256.Int, error) {
	if v == nil {
		return nil, fixedpoint.ErrOutOfRange
	}
	if v.Gt(fixedpoint.MaxUnit96()) {
		return nil, fixedpoint.ErrOutOfRange
	}
	return v, nil
}

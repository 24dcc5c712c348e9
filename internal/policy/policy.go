// Package policy defines the pre-transfer authorization capability the token
// ledger consults before every balance mutation, plus the shipped variants.
package policy

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrUnauthorized is returned when a policy rejects a transfer. The ledger
// aborts the whole operation before any state changes.
var ErrUnauthorized = errors.New("transfer not authorized")

// Policy authorizes a balance mutation before it is applied.
type Policy interface {
	// Validate approves or rejects moving amount from `from` to `to` on
	// behalf of caller. A nil return authorizes the transfer.
	Validate(caller, from, to common.Address, amount *uint256.Int) error
}

// Open authorizes every transfer.
type Open struct{}

// Validate always authorizes.
func (Open) Validate(_, _, _ common.Address, _ *uint256.Int) error {
	return nil
}

// SelfOnly authorizes a caller to move only its own funds, with an explicit
// exemption set for role-gated operators (the swap pool, for instance, pulls
// funds from callers who approved it).
type SelfOnly struct {
	mu     sync.RWMutex
	exempt map[common.Address]struct{}
}

// NewSelfOnly creates the policy with the given exempt operators.
func NewSelfOnly(exempt ...common.Address) *SelfOnly {
	p := &SelfOnly{exempt: make(map[common.Address]struct{}, len(exempt))}
	for _, a := range exempt {
		p.exempt[a] = struct{}{}
	}
	return p
}

// Exempt adds an operator allowed to move other accounts' funds.
func (p *SelfOnly) Exempt(operator common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exempt[operator] = struct{}{}
}

// Validate authorizes when caller == from or caller is exempt.
func (p *SelfOnly) Validate(caller, from, _ common.Address, _ *uint256.Int) error {
	if caller == from {
		return nil
	}
	p.mu.RLock()
	_, ok := p.exempt[caller]
	p.mu.RUnlock()
	if ok {
		return nil
	}
	return ErrUnauthorized
}

// OwnerMediated routes every transfer through one privileged owner: only the
// owner may initiate balance mutations, regardless of whose funds move.
type OwnerMediated struct {
	owner common.Address
}

// NewOwnerMediated creates the policy for the given owner.
func NewOwnerMediated(owner common.Address) *OwnerMediated {
	return &OwnerMediated{owner: owner}
}

// Validate authorizes only the configured owner.
func (p *OwnerMediated) Validate(caller, _, _ common.Address, _ *uint256.Int) error {
	if caller != p.owner {
		return ErrUnauthorized
	}
	return nil
}

var (
	_ Policy = Open{}
	_ Policy = (*SelfOnly)(nil)
	_ Policy = (*OwnerMediated)(nil)
)

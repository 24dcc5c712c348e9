package eligibility

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
)

// Memory is an in-memory tier table.
type Memory struct {
	mu   sync.RWMutex
	data map[common.Address]domain.EligibilityResult
}

// NewMemory creates an empty tier table.
func NewMemory() *Memory {
	return &Memory{data: make(map[common.Address]domain.EligibilityResult)}
}

// Set records account's tier and limit. A nil limit means no cap.
func (m *Memory) Set(account common.Address, tier uint8, limit *uint256.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := domain.EligibilityResult{Tier: tier}
	if limit != nil {
		r.Limit = limit.Clone()
	}
	m.data[account] = r
}

// Remove deletes account's record, reverting it to tier 0.
func (m *Memory) Remove(account common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, account)
}

// Lookup returns account's snapshot; unknown accounts are tier 0.
func (m *Memory) Lookup(_ context.Context, account common.Address) (domain.EligibilityResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[account]
	if !ok {
		return domain.EligibilityResult{}, nil
	}
	if r.Limit != nil {
		r.Limit = r.Limit.Clone()
	}
	return r, nil
}

var _ Provider = (*Memory)(nil)

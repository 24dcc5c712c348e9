// Package refregistry maps external reference codes to ledger addresses.
// Codes are base58 so they survive manual entry without ambiguous
// characters. The token ledger consumes the registry through its own
// narrow interface; an unresolved code is reported as "not performed",
// never as an error.
package refregistry

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// Registry errors.
var (
	// ErrInvalidReference is returned when a code is empty or not base58.
	ErrInvalidReference = errors.New("invalid reference code")

	// ErrReferenceExists is returned when registering an already-bound code.
	ErrReferenceExists = errors.New("reference code already registered")
)

// Memory is an in-memory reference registry.
type Memory struct {
	mu   sync.RWMutex
	refs map[string]common.Address
}

// NewMemory creates an empty registry.
func NewMemory() *Memory {
	return &Memory{refs: make(map[string]common.Address)}
}

// Register binds ref to addr. The code must be non-empty base58 and not
// already bound.
func (m *Memory) Register(ref string, addr common.Address) error {
	if err := ValidateReference(ref); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.refs[ref]; exists {
		return ErrReferenceExists
	}
	m.refs[ref] = addr
	return nil
}

// Unregister removes a binding. Unknown codes are a no-op.
func (m *Memory) Unregister(ref string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refs, ref)
}

// AddressForReference resolves ref. The second return is false when the
// code is unknown or malformed.
func (m *Memory) AddressForReference(ref string) (common.Address, bool) {
	if ValidateReference(ref) != nil {
		return common.Address{}, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	addr, ok := m.refs[ref]
	return addr, ok
}

// ValidateReference checks that ref is a non-empty base58 string.
func ValidateReference(ref string) error {
	if ref == "" {
		return ErrInvalidReference
	}
	if _, err := base58.Decode(ref); err != nil {
		return ErrInvalidReference
	}
	return nil
}

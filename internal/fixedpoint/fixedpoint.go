// Package fixedpoint provides checked arithmetic on the 96-bit balance unit
// and the 32-bit block unit used throughout the ledger. All balance and
// checkpoint mutations must go through these helpers; there is no unchecked
// arithmetic on the 96-bit unit anywhere else.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// Arithmetic errors.
var (
	// ErrOutOfRange is returned when a value does not fit the target unit.
	ErrOutOfRange = errors.New("value out of range")

	// ErrOverflow is returned when an addition exceeds the 96-bit unit.
	ErrOverflow = errors.New("96-bit addition overflow")

	// ErrUnderflow is returned when a subtraction goes below zero.
	ErrUnderflow = errors.New("96-bit subtraction underflow")
)

// maxUnit96 is 2^96 - 1, the largest representable balance.
var maxUnit96 = func() *uint256.Int {
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, 96)
	return m.Sub(m, one)
}()

// MaxUnit96 returns 2^96 - 1. The token ledger uses this value as the
// unlimited-allowance sentinel.
func MaxUnit96() *uint256.Int {
	return new(uint256.Int).Set(maxUnit96)
}

// IsMaxUnit96 reports whether v equals 2^96 - 1.
func IsMaxUnit96(v *uint256.Int) bool {
	return v != nil && v.Eq(maxUnit96)
}

// ToUnit96 converts an arbitrary-precision value into the 96-bit unit.
// Returns ErrOutOfRange if v is negative or >= 2^96.
func ToUnit96(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, ErrOutOfRange
	}
	u, overflow := uint256.FromBig(v)
	if overflow || u.Gt(maxUnit96) {
		return nil, ErrOutOfRange
	}
	return u, nil
}

// ToUnit32 converts a value into the 32-bit block unit.
// Returns ErrOutOfRange if v >= 2^32.
func ToUnit32(v uint64) (uint32, error) {
	if v > 0xffffffff {
		return 0, ErrOutOfRange
	}
	return uint32(v), nil
}

// Add96 returns a+b. Returns ErrOverflow if the sum exceeds 2^96 - 1.
func Add96(a, b *uint256.Int) (*uint256.Int, error) {
	sum := new(uint256.Int).Add(a, b)
	if sum.Gt(maxUnit96) {
		return nil, ErrOverflow
	}
	return sum, nil
}

// Sub96 returns a-b. Returns ErrUnderflow if b > a.
func Sub96(a, b *uint256.Int) (*uint256.Int, error) {
	if b.Gt(a) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

package eligibility

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestMemory_UnknownAccountIsTierZero(t *testing.T) {
	m := NewMemory()

	res, err := m.Lookup(context.Background(), common.HexToAddress("0x01"))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.Eligible() {
		t.Errorf("unknown account reported eligible")
	}
}

func TestMemory_SetAndRemove(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	account := common.HexToAddress("0x0a")

	m.Set(account, 2, uint256.NewInt(15_000))
	res, err := m.Lookup(ctx, account)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if res.Tier != 2 || !res.Limit.Eq(uint256.NewInt(15_000)) {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Unlimited() {
		t.Errorf("capped tier reported unlimited")
	}

	// Returned limits are snapshots.
	res.Limit.AddUint64(res.Limit, 1)
	res2, _ := m.Lookup(ctx, account)
	if !res2.Limit.Eq(uint256.NewInt(15_000)) {
		t.Errorf("lookup result aliased internal state")
	}

	m.Remove(account)
	res, _ = m.Lookup(ctx, account)
	if res.Eligible() {
		t.Errorf("removed account still eligible")
	}
}

func TestMemory_NilLimitIsUnlimited(t *testing.T) {
	m := NewMemory()
	account := common.HexToAddress("0x0b")

	m.Set(account, 3, nil)
	res, err := m.Lookup(context.Background(), account)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !res.Eligible() || !res.Unlimited() {
		t.Errorf("expected eligible unlimited tier, got %+v", res)
	}
}

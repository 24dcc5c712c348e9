package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
	"github.com/ArcticSubmarine/smart-contracts/internal/events"
	"github.com/ArcticSubmarine/smart-contracts/internal/fixedpoint"
	"github.com/ArcticSubmarine/smart-contracts/internal/policy"
)

var (
	genesis = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice   = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol   = common.HexToAddress("0x0000000000000000000000000000000000000ca0")
	admin   = common.HexToAddress("0x00000000000000000000000000000000000000ad")
)

func newTestToken(t *testing.T, supply int64) (*Token, *ManualClock, *events.MemoryJournal) {
	t.Helper()
	clock := NewManualClock(1)
	journal := events.NewMemoryJournal()
	tok, err := NewToken(TokenConfig{
		Name:        "Test Token",
		Symbol:      "TST",
		Decimals:    6,
		TotalSupply: big.NewInt(supply),
		Genesis:     genesis,
		Admin:       admin,
		Clock:       clock,
		Sink:        journal,
	})
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}
	return tok, clock, journal
}

// sumBalances adds up every account ever touched by the test.
func sumBalances(tok *Token, accounts ...common.Address) *uint256.Int {
	sum := uint256.NewInt(0)
	for _, a := range accounts {
		sum.Add(sum, tok.BalanceOf(a))
	}
	return sum
}

func TestNewToken_GenesisMint(t *testing.T) {
	// Supply of 210,000,000 units at 6 decimals, minted entirely to one
	// account.
	supply := new(big.Int).Mul(big.NewInt(210_000_000), big.NewInt(1_000_000))
	clock := NewManualClock(1)
	journal := events.NewMemoryJournal()
	tok, err := NewToken(TokenConfig{
		Name:        "Test Token",
		Symbol:      "TST",
		Decimals:    6,
		TotalSupply: supply,
		Genesis:     genesis,
		Clock:       clock,
		Sink:        journal,
	})
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	want, _ := uint256.FromBig(supply)
	if !tok.BalanceOf(genesis).Eq(want) {
		t.Errorf("genesis balance = %s, want %s", tok.BalanceOf(genesis), want)
	}
	if !tok.TotalSupply().Eq(want) {
		t.Errorf("total supply = %s, want %s", tok.TotalSupply(), want)
	}

	// Transferring 1,000 whole tokens leaves 209,999,000 * 10^6 at genesis.
	thousand := uint256.NewInt(1_000_000_000) // 1,000 * 10^6
	if err := tok.Transfer(genesis, alice, thousand); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	wantGenesis := new(uint256.Int).Mul(uint256.NewInt(209_999_000), uint256.NewInt(1_000_000))
	if !tok.BalanceOf(genesis).Eq(wantGenesis) {
		t.Errorf("genesis balance = %s, want %s", tok.BalanceOf(genesis), wantGenesis)
	}
	if !tok.BalanceOf(alice).Eq(thousand) {
		t.Errorf("alice balance = %s, want %s", tok.BalanceOf(alice), thousand)
	}

	transfers := journal.ByKind(domain.EventKindTransfer)
	if len(transfers) != 2 { // genesis mint + the transfer
		t.Fatalf("expected 2 transfer events, got %d", len(transfers))
	}
	ev := transfers[1].(domain.TransferEvent)
	if ev.From != genesis || ev.To != alice || !ev.Amount.Eq(thousand) {
		t.Errorf("unexpected transfer event: %+v", ev)
	}
}

func TestNewToken_ZeroGenesis(t *testing.T) {
	_, err := NewToken(TokenConfig{TotalSupply: big.NewInt(1)})
	if !errors.Is(err, ErrZeroAddress) {
		t.Errorf("expected ErrZeroAddress, got %v", err)
	}
}

func TestNewToken_SupplyOutOfRange(t *testing.T) {
	over := new(big.Int).Lsh(big.NewInt(1), 96)
	_, err := NewToken(TokenConfig{TotalSupply: over, Genesis: genesis})
	if !errors.Is(err, fixedpoint.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestTransfer_SupplyConserved(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)

	steps := []struct {
		from, to common.Address
		amount   uint64
	}{
		{genesis, alice, 400},
		{alice, bob, 150},
		{bob, carol, 150},
		{genesis, carol, 600},
		{carol, alice, 1},
	}
	for i, s := range steps {
		if err := tok.Transfer(s.from, s.to, uint256.NewInt(s.amount)); err != nil {
			t.Fatalf("step %d: Transfer failed: %v", i, err)
		}
		if !sumBalances(tok, genesis, alice, bob, carol).Eq(tok.TotalSupply()) {
			t.Fatalf("step %d: sum(balances) != totalSupply", i)
		}
	}
}

func TestTransfer_SelfTransferKeepsBalance(t *testing.T) {
	tok, _, journal := newTestToken(t, 1000)
	if err := tok.Transfer(genesis, alice, uint256.NewInt(400)); err != nil {
		t.Fatalf("setup transfer failed: %v", err)
	}

	if err := tok.Transfer(alice, alice, uint256.NewInt(400)); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	if !tok.BalanceOf(alice).Eq(uint256.NewInt(400)) {
		t.Errorf("alice balance after self transfer = %s, want 400", tok.BalanceOf(alice))
	}
	if !sumBalances(tok, genesis, alice).Eq(tok.TotalSupply()) {
		t.Errorf("sum(balances) = %s, want total supply %s",
			sumBalances(tok, genesis, alice), tok.TotalSupply())
	}

	// Partial self transfer also nets out.
	if err := tok.Transfer(alice, alice, uint256.NewInt(150)); err != nil {
		t.Fatalf("partial self transfer failed: %v", err)
	}
	if !tok.BalanceOf(alice).Eq(uint256.NewInt(400)) {
		t.Errorf("alice balance after partial self transfer = %s, want 400", tok.BalanceOf(alice))
	}

	// Self transfers are still recorded: mint + setup + two self transfers.
	if got := len(journal.ByKind(domain.EventKindTransfer)); got != 4 {
		t.Errorf("transfer events = %d, want 4", got)
	}

	// Exceeding the balance still fails even against oneself.
	if err := tok.Transfer(alice, alice, uint256.NewInt(401)); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestTransfer_ExactBalanceBoundary(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)
	if err := tok.Transfer(genesis, alice, uint256.NewInt(300)); err != nil {
		t.Fatalf("setup transfer failed: %v", err)
	}

	// Transfer of exactly the balance succeeds and zeroes the account.
	if err := tok.Transfer(alice, bob, uint256.NewInt(300)); err != nil {
		t.Fatalf("exact-balance transfer failed: %v", err)
	}
	if !tok.BalanceOf(alice).IsZero() {
		t.Errorf("alice balance = %s, want 0", tok.BalanceOf(alice))
	}

	// One more unit fails.
	err := tok.Transfer(bob, alice, uint256.NewInt(301))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
	if !tok.BalanceOf(bob).Eq(uint256.NewInt(300)) {
		t.Errorf("failed transfer changed balance: %s", tok.BalanceOf(bob))
	}
}

func TestTransfer_ZeroAddress(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)
	err := tok.Transfer(genesis, common.Address{}, uint256.NewInt(1))
	if !errors.Is(err, ErrZeroAddress) {
		t.Errorf("expected ErrZeroAddress, got %v", err)
	}
}

func TestTransfer_AmountOutOfRange(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)
	over := new(uint256.Int).AddUint64(fixedpoint.MaxUnit96(), 1)
	err := tok.Transfer(genesis, alice, over)
	if !errors.Is(err, fixedpoint.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestApprove_Idempotent(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)

	if err := tok.Approve(genesis, alice, uint256.NewInt(50)); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	first := tok.Allowance(genesis, alice)
	if err := tok.Approve(genesis, alice, uint256.NewInt(50)); err != nil {
		t.Fatalf("second Approve failed: %v", err)
	}
	if !tok.Allowance(genesis, alice).Eq(first) {
		t.Errorf("allowance changed after identical approve")
	}
	if !first.Eq(uint256.NewInt(50)) {
		t.Errorf("allowance = %s, want 50", first)
	}
}

func TestTransferFrom_DecrementsAllowance(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)

	if err := tok.Approve(genesis, alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := tok.TransferFrom(alice, genesis, bob, uint256.NewInt(60)); err != nil {
		t.Fatalf("TransferFrom failed: %v", err)
	}
	if !tok.Allowance(genesis, alice).Eq(uint256.NewInt(40)) {
		t.Errorf("allowance = %s, want 40", tok.Allowance(genesis, alice))
	}

	err := tok.TransferFrom(alice, genesis, bob, uint256.NewInt(41))
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestTransferFrom_UnlimitedSentinel(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)

	if err := tok.Approve(genesis, alice, fixedpoint.MaxUnit96()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := tok.TransferFrom(alice, genesis, bob, uint256.NewInt(500)); err != nil {
		t.Fatalf("TransferFrom failed: %v", err)
	}

	// The sentinel is never decremented.
	if !fixedpoint.IsMaxUnit96(tok.Allowance(genesis, alice)) {
		t.Errorf("unlimited allowance was decremented: %s", tok.Allowance(genesis, alice))
	}
}

func TestTransfer_PolicyRejection(t *testing.T) {
	clock := NewManualClock(1)
	tok, err := NewToken(TokenConfig{
		Symbol:      "TST",
		TotalSupply: big.NewInt(1000),
		Genesis:     genesis,
		Policy:      policy.NewSelfOnly(),
		Clock:       clock,
	})
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	// Moving someone else's funds is rejected before any state change.
	err = tok.TransferFrom(alice, genesis, bob, uint256.NewInt(10))
	if !errors.Is(err, policy.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if !tok.BalanceOf(genesis).Eq(uint256.NewInt(1000)) {
		t.Errorf("rejected transfer changed balances")
	}

	// Own funds still move.
	if err := tok.Transfer(genesis, alice, uint256.NewInt(10)); err != nil {
		t.Errorf("self transfer rejected: %v", err)
	}
}

func TestSetPolicy_AdminOnly(t *testing.T) {
	tok, _, _ := newTestToken(t, 1000)

	if err := tok.SetPolicy(alice, policy.Open{}); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin, got %v", err)
	}
	if err := tok.SetPolicy(admin, policy.NewOwnerMediated(admin)); err != nil {
		t.Fatalf("admin SetPolicy failed: %v", err)
	}

	// New policy takes effect: only admin may initiate transfers now.
	if err := tok.Transfer(genesis, alice, uint256.NewInt(1)); !errors.Is(err, policy.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized under owner-mediated policy, got %v", err)
	}
}

type staticResolver map[string]common.Address

func (r staticResolver) AddressForReference(ref string) (common.Address, bool) {
	addr, ok := r[ref]
	return addr, ok
}

func TestTransferByReference(t *testing.T) {
	clock := NewManualClock(1)
	tok, err := NewToken(TokenConfig{
		Symbol:      "TST",
		TotalSupply: big.NewInt(1000),
		Genesis:     genesis,
		Clock:       clock,
		Registry:    staticResolver{"acct-1": alice},
	})
	if err != nil {
		t.Fatalf("NewToken failed: %v", err)
	}

	performed, err := tok.TransferByReference(genesis, "acct-1", uint256.NewInt(25))
	if err != nil {
		t.Fatalf("TransferByReference failed: %v", err)
	}
	if !performed {
		t.Fatal("expected transfer to be performed")
	}
	if !tok.BalanceOf(alice).Eq(uint256.NewInt(25)) {
		t.Errorf("alice balance = %s, want 25", tok.BalanceOf(alice))
	}

	// Unknown reference: not performed, no error.
	performed, err = tok.TransferByReference(genesis, "acct-2", uint256.NewInt(25))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if performed {
		t.Error("expected transfer not performed for unknown reference")
	}
}

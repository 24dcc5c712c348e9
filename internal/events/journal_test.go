package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ArcticSubmarine/smart-contracts/internal/domain"
)

func transferAt(block uint32, amount uint64) domain.TransferEvent {
	return domain.TransferEvent{
		Token:  "TKN",
		From:   common.HexToAddress("0x01"),
		To:     common.HexToAddress("0x02"),
		Amount: uint256.NewInt(amount),
		Block:  block,
	}
}

func TestMemoryJournal_AppendAndLen(t *testing.T) {
	j := NewMemoryJournal()
	if j.Len() != 0 {
		t.Fatalf("new journal Len = %d, want 0", j.Len())
	}

	j.Emit(transferAt(1, 100))
	j.Emit(transferAt(2, 200))

	if j.Len() != 2 {
		t.Errorf("Len = %d, want 2", j.Len())
	}

	all := j.All()
	if len(all) != 2 {
		t.Fatalf("All returned %d events, want 2", len(all))
	}
	first, ok := all[0].(domain.TransferEvent)
	if !ok {
		t.Fatalf("All()[0] is %T, want TransferEvent", all[0])
	}
	if first.Block != 1 {
		t.Errorf("first event block = %d, want 1", first.Block)
	}
}

func TestMemoryJournal_Recent(t *testing.T) {
	j := NewMemoryJournal()
	for i := uint32(1); i <= 5; i++ {
		j.Emit(transferAt(i, uint64(i)*10))
	}

	recent := j.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d events, want 2", len(recent))
	}
	if recent[0].(domain.TransferEvent).Block != 4 || recent[1].(domain.TransferEvent).Block != 5 {
		t.Errorf("Recent(2) blocks = %d,%d, want 4,5",
			recent[0].(domain.TransferEvent).Block, recent[1].(domain.TransferEvent).Block)
	}

	if got := j.Recent(100); len(got) != 5 {
		t.Errorf("Recent(100) returned %d events, want all 5", len(got))
	}
	if got := j.Recent(0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}
}

func TestMemoryJournal_ByKind(t *testing.T) {
	j := NewMemoryJournal()
	j.Emit(transferAt(1, 100))
	j.Emit(domain.ApprovalEvent{
		Token:   "TKN",
		Owner:   common.HexToAddress("0x01"),
		Spender: common.HexToAddress("0x02"),
		Amount:  uint256.NewInt(500),
		Block:   1,
	})
	j.Emit(transferAt(2, 200))

	transfers := j.ByKind(domain.EventKindTransfer)
	if len(transfers) != 2 {
		t.Errorf("ByKind(transfer) returned %d events, want 2", len(transfers))
	}
	approvals := j.ByKind(domain.EventKindApproval)
	if len(approvals) != 1 {
		t.Errorf("ByKind(approval) returned %d events, want 1", len(approvals))
	}
	if got := j.ByKind(domain.EventKindSwap); got != nil {
		t.Errorf("ByKind(swap) = %v, want nil", got)
	}
}

func TestMulti_FansOut(t *testing.T) {
	a := NewMemoryJournal()
	b := NewMemoryJournal()
	sink := Multi{a, b, Discard}

	sink.Emit(transferAt(1, 100))

	if a.Len() != 1 || b.Len() != 1 {
		t.Errorf("fan-out lengths = %d,%d, want 1,1", a.Len(), b.Len())
	}
}

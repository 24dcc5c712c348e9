package refregistry

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var addr = common.HexToAddress("0x0000000000000000000000000000000000000a11")

func TestRegister_AndResolve(t *testing.T) {
	m := NewMemory()

	if err := m.Register("3vQB7B6MdGQZaxY", addr); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, ok := m.AddressForReference("3vQB7B6MdGQZaxY")
	if !ok {
		t.Fatal("reference did not resolve")
	}
	if got != addr {
		t.Errorf("resolved %s, want %s", got.Hex(), addr.Hex())
	}
}

func TestRegister_DuplicateRejected(t *testing.T) {
	m := NewMemory()

	if err := m.Register("2NEpo7TZRRrLZSi2U", addr); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	err := m.Register("2NEpo7TZRRrLZSi2U", common.HexToAddress("0x02"))
	if !errors.Is(err, ErrReferenceExists) {
		t.Errorf("expected ErrReferenceExists, got %v", err)
	}
}

func TestRegister_InvalidCode(t *testing.T) {
	m := NewMemory()

	// 0, O, I, l are not in the base58 alphabet.
	for _, ref := range []string{"", "ref-0IlO", "with space"} {
		if err := m.Register(ref, addr); !errors.Is(err, ErrInvalidReference) {
			t.Errorf("Register(%q): expected ErrInvalidReference, got %v", ref, err)
		}
	}
}

func TestAddressForReference_Unknown(t *testing.T) {
	m := NewMemory()

	if _, ok := m.AddressForReference("3vQB7B6MdGQZaxY"); ok {
		t.Error("unknown reference resolved")
	}
	if _, ok := m.AddressForReference("not!base58"); ok {
		t.Error("malformed reference resolved")
	}
}

func TestUnregister(t *testing.T) {
	m := NewMemory()

	if err := m.Register("3vQB7B6MdGQZaxY", addr); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	m.Unregister("3vQB7B6MdGQZaxY")
	if _, ok := m.AddressForReference("3vQB7B6MdGQZaxY"); ok {
		t.Error("unregistered reference still resolves")
	}
}

package bank

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/state"
	"liquidstake/crypto"
	"liquidstake/storage"
)

func testAddr(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = b
	return crypto.NewAddress(crypto.AccountPrefix, raw)
}

func TestMintAndSend(t *testing.T) {
	k := New(state.NewManager(storage.NewMemDB()))
	alice, bob := testAddr(1), testAddr(2)
	if err := k.Mint(alice, "ustake", uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := k.Send(alice, bob, "ustake", uint256.NewInt(40)); err != nil {
		t.Fatalf("send: %v", err)
	}
	a, _ := k.Balance(alice, "ustake")
	b, _ := k.Balance(bob, "ustake")
	if a.Uint64() != 60 || b.Uint64() != 40 {
		t.Fatalf("unexpected balances %s/%s", a, b)
	}
	supply, _ := k.Supply("ustake")
	if supply.Uint64() != 100 {
		t.Fatalf("unexpected supply %s", supply)
	}
	other, _ := k.Balance(alice, "other")
	if !other.IsZero() {
		t.Fatalf("denoms must be isolated")
	}
}

func TestSendRejectsOverdraft(t *testing.T) {
	k := New(state.NewManager(storage.NewMemDB()))
	alice, bob := testAddr(1), testAddr(2)
	if err := k.Mint(alice, "ustake", uint256.NewInt(5)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := k.Send(alice, bob, "ustake", uint256.NewInt(6))
	if !errors.Is(err, coreerrors.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := k.Send(alice, bob, "ustake", uint256.NewInt(0)); err != nil {
		t.Fatalf("zero send should be a no-op: %v", err)
	}
	a, _ := k.Balance(alice, "ustake")
	if a.Uint64() != 5 {
		t.Fatalf("failed send must not move funds, got %s", a)
	}
}

package common

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"liquidstake/crypto"
)

// PauseStore is a PauseView that can also be toggled.
type PauseStore interface {
	PauseView
	SetPaused(module string, paused bool) error
}

// LoadAmount reads an amount stored with StoreAmount. Missing keys read as
// zero.
func LoadAmount(store KVStore, key []byte) (*uint256.Int, error) {
	stored := new(big.Int)
	ok, err := store.KVGet(key, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Zero(), nil
	}
	return FromBig(stored)
}

// StoreAmount writes amount under key, deleting the key when amount is zero.
func StoreAmount(store KVStore, key []byte, amount *uint256.Int) error {
	if IsZero(amount) {
		return store.KVDelete(key)
	}
	return store.KVPut(key, ToBig(amount))
}

// AddressIndex is an unordered set of addresses kept as one record per
// member plus a count, so Add and Remove touch a constant number of keys no
// matter how large the set grows. Modules use it to enumerate owners of
// per-address records.
type AddressIndex struct {
	store  KVStore
	prefix string
}

func NewAddressIndex(store KVStore, prefix string) *AddressIndex {
	return &AddressIndex{store: store, prefix: prefix}
}

func (x *AddressIndex) countKey() []byte {
	return []byte(x.prefix + "/count")
}

func (x *AddressIndex) slotKey(slot uint64) []byte {
	key := []byte(x.prefix + "/slot/")
	return binary.BigEndian.AppendUint64(key, slot)
}

func (x *AddressIndex) positionKey(addr crypto.Address) []byte {
	return append([]byte(x.prefix+"/pos/"), addr.Bytes()...)
}

// Len returns the number of members.
func (x *AddressIndex) Len() (uint64, error) {
	var count uint64
	if _, err := x.store.KVGet(x.countKey(), &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (x *AddressIndex) setLen(count uint64) error {
	if count == 0 {
		return x.store.KVDelete(x.countKey())
	}
	return x.store.KVPut(x.countKey(), count)
}

// Add inserts addr if absent.
func (x *AddressIndex) Add(addr crypto.Address) error {
	ok, err := x.store.KVGet(x.positionKey(addr), nil)
	if err != nil || ok {
		return err
	}
	count, err := x.Len()
	if err != nil {
		return err
	}
	if err := x.store.KVPut(x.slotKey(count), addr.Bytes()); err != nil {
		return err
	}
	if err := x.store.KVPut(x.positionKey(addr), count); err != nil {
		return err
	}
	return x.setLen(count + 1)
}

// Remove deletes addr if present. The last member moves into the freed slot.
func (x *AddressIndex) Remove(addr crypto.Address) error {
	var slot uint64
	ok, err := x.store.KVGet(x.positionKey(addr), &slot)
	if err != nil || !ok {
		return err
	}
	count, err := x.Len()
	if err != nil {
		return err
	}
	if count == 0 || slot >= count {
		return fmt.Errorf("address index %s: slot %d outside %d members", x.prefix, slot, count)
	}
	last := count - 1
	if slot != last {
		var raw []byte
		if _, err := x.store.KVGet(x.slotKey(last), &raw); err != nil {
			return err
		}
		moved, err := crypto.AddressFromBytes(raw)
		if err != nil {
			return err
		}
		if err := x.store.KVPut(x.slotKey(slot), raw); err != nil {
			return err
		}
		if err := x.store.KVPut(x.positionKey(moved), slot); err != nil {
			return err
		}
	}
	if err := x.store.KVDelete(x.slotKey(last)); err != nil {
		return err
	}
	if err := x.store.KVDelete(x.positionKey(addr)); err != nil {
		return err
	}
	return x.setLen(last)
}

// Members returns every member in slot order.
func (x *AddressIndex) Members() ([]crypto.Address, error) {
	count, err := x.Len()
	if err != nil {
		return nil, err
	}
	out := make([]crypto.Address, 0, count)
	for slot := uint64(0); slot < count; slot++ {
		var raw []byte
		ok, err := x.store.KVGet(x.slotKey(slot), &raw)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("address index %s: slot %d missing", x.prefix, slot)
		}
		addr, err := crypto.AddressFromBytes(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

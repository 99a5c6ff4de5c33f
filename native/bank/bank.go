// Package bank keeps per-denomination account balances in state.
package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

// Storage abstracts the subset of state manager functionality required by the
// bank.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var errNilStore = errors.New("bank: state store not configured")

// Keeper reads and writes balances. It holds no state of its own.
type Keeper struct {
	store Storage
}

func New(store Storage) *Keeper {
	return &Keeper{store: store}
}

func balanceKey(denom string, addr crypto.Address) []byte {
	return append([]byte("bank/balance/"+denom+"/"), addr.Bytes()...)
}

func supplyKey(denom string) []byte {
	return []byte("bank/supply/" + denom)
}

func (k *Keeper) load(key []byte) (*uint256.Int, error) {
	if k == nil || k.store == nil {
		return nil, errNilStore
	}
	stored := new(big.Int)
	ok, err := k.store.KVGet(key, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(stored)
}

func (k *Keeper) save(key []byte, amount *uint256.Int) error {
	if common.IsZero(amount) {
		return k.store.KVDelete(key)
	}
	return k.store.KVPut(key, common.ToBig(amount))
}

// Balance returns the holdings of addr in denom.
func (k *Keeper) Balance(addr crypto.Address, denom string) (*uint256.Int, error) {
	balance, err := k.load(balanceKey(denom, addr))
	if err != nil {
		return nil, fmt.Errorf("bank: balance: %w", err)
	}
	return balance, nil
}

// Supply returns the total minted amount of denom.
func (k *Keeper) Supply(denom string) (*uint256.Int, error) {
	return k.load(supplyKey(denom))
}

// Send moves amount of denom between accounts. Sending zero is a no-op.
func (k *Keeper) Send(from, to crypto.Address, denom string, amount *uint256.Int) error {
	if common.IsZero(amount) {
		return nil
	}
	if denom == "" {
		return fmt.Errorf("bank: denom required")
	}
	fromBalance, err := k.Balance(from, denom)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("bank: %s has %s%s, needs %s: %w", from, fromBalance.Dec(), denom, amount.Dec(), coreerrors.ErrInsufficientFunds)
	}
	if from.Equal(to) {
		return nil
	}
	toBalance, err := k.Balance(to, denom)
	if err != nil {
		return err
	}
	nextFrom, err := common.Sub(fromBalance, amount)
	if err != nil {
		return err
	}
	nextTo, err := common.Add(toBalance, amount)
	if err != nil {
		return err
	}
	if err := k.save(balanceKey(denom, from), nextFrom); err != nil {
		return err
	}
	return k.save(balanceKey(denom, to), nextTo)
}

// Mint credits newly created funds, used for genesis allocations and
// validator rewards.
func (k *Keeper) Mint(to crypto.Address, denom string, amount *uint256.Int) error {
	if common.IsZero(amount) {
		return nil
	}
	if denom == "" {
		return fmt.Errorf("bank: denom required")
	}
	supply, err := k.Supply(denom)
	if err != nil {
		return err
	}
	nextSupply, err := common.Add(supply, amount)
	if err != nil {
		return err
	}
	balance, err := k.Balance(to, denom)
	if err != nil {
		return err
	}
	nextBalance, err := common.Add(balance, amount)
	if err != nil {
		return err
	}
	if err := k.save(supplyKey(denom), nextSupply); err != nil {
		return err
	}
	return k.save(balanceKey(denom, to), nextBalance)
}

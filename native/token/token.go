// Package token implements the fungible liquid tokens minted by the staking
// module. Several tokens may coexist; each is identified by its symbol.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

// Storage abstracts the subset of state manager functionality required by the
// token ledger.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

var (
	errNilStore = errors.New("token: state store not configured")
	// ErrUnknownSymbol is returned for an empty token symbol.
	ErrUnknownSymbol = errors.New("token: symbol required")
)

type Ledger struct {
	store Storage
}

func New(store Storage) *Ledger {
	return &Ledger{store: store}
}

func normalize(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if trimmed == "" {
		return "", ErrUnknownSymbol
	}
	return trimmed, nil
}

func balanceKey(symbol string, addr crypto.Address) []byte {
	return append([]byte("token/"+symbol+"/balance/"), addr.Bytes()...)
}

func supplyKey(symbol string) []byte {
	return []byte("token/" + symbol + "/supply")
}

func (l *Ledger) load(key []byte) (*uint256.Int, error) {
	if l == nil || l.store == nil {
		return nil, errNilStore
	}
	stored := new(big.Int)
	ok, err := l.store.KVGet(key, stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return common.Zero(), nil
	}
	return common.FromBig(stored)
}

func (l *Ledger) save(key []byte, amount *uint256.Int) error {
	if common.IsZero(amount) {
		return l.store.KVDelete(key)
	}
	return l.store.KVPut(key, common.ToBig(amount))
}

func (l *Ledger) TotalSupply(symbol string) (*uint256.Int, error) {
	sym, err := normalize(symbol)
	if err != nil {
		return nil, err
	}
	return l.load(supplyKey(sym))
}

func (l *Ledger) Balance(symbol string, addr crypto.Address) (*uint256.Int, error) {
	sym, err := normalize(symbol)
	if err != nil {
		return nil, err
	}
	return l.load(balanceKey(sym, addr))
}

func (l *Ledger) adjust(sym string, addr crypto.Address, delta *uint256.Int, credit bool) error {
	balance, err := l.load(balanceKey(sym, addr))
	if err != nil {
		return err
	}
	var next *uint256.Int
	if credit {
		next, err = common.Add(balance, delta)
	} else {
		if balance.Lt(delta) {
			return fmt.Errorf("token: %s holds %s %s, needs %s: %w", addr, balance.Dec(), sym, delta.Dec(), coreerrors.ErrInsufficientFunds)
		}
		next, err = common.Sub(balance, delta)
	}
	if err != nil {
		return err
	}
	return l.save(balanceKey(sym, addr), next)
}

// Mint creates amount tokens for to.
func (l *Ledger) Mint(symbol string, to crypto.Address, amount *uint256.Int) error {
	sym, err := normalize(symbol)
	if err != nil {
		return err
	}
	if common.IsZero(amount) {
		return nil
	}
	supply, err := l.load(supplyKey(sym))
	if err != nil {
		return err
	}
	next, err := common.Add(supply, amount)
	if err != nil {
		return err
	}
	if err := l.adjust(sym, to, amount, true); err != nil {
		return err
	}
	return l.save(supplyKey(sym), next)
}

// Burn destroys amount tokens held by from.
func (l *Ledger) Burn(symbol string, from crypto.Address, amount *uint256.Int) error {
	sym, err := normalize(symbol)
	if err != nil {
		return err
	}
	if common.IsZero(amount) {
		return nil
	}
	supply, err := l.load(supplyKey(sym))
	if err != nil {
		return err
	}
	if err := l.adjust(sym, from, amount, false); err != nil {
		return err
	}
	next, err := common.Sub(supply, amount)
	if err != nil {
		return err
	}
	return l.save(supplyKey(sym), next)
}

// Transfer moves amount tokens between holders.
func (l *Ledger) Transfer(symbol string, from, to crypto.Address, amount *uint256.Int) error {
	sym, err := normalize(symbol)
	if err != nil {
		return err
	}
	if common.IsZero(amount) || from.Equal(to) {
		return nil
	}
	if err := l.adjust(sym, from, amount, false); err != nil {
		return err
	}
	return l.adjust(sym, to, amount, true)
}

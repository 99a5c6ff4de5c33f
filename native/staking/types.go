package staking

import (
	"math/big"

	"github.com/holiman/uint256"

	"liquidstake/crypto"
	"liquidstake/native/common"
)

// Config is the persisted module configuration.
type Config struct {
	Owner       crypto.Address
	BondDenom   string
	LiquidToken string
	Validator   string
}

// Supply is the accounting ledger. Unstakings always equals the sum of queued
// node values and Claims the sum of claimable balances.
type Supply struct {
	Native     *uint256.Int
	Unstakings *uint256.Int
	Claims     *uint256.Int
}

// Status summarises the module for queries.
type Status struct {
	Issued     *uint256.Int
	Native     *uint256.Int
	Unstakings *uint256.Int
	Claims     *uint256.Int
	Bonded     *uint256.Int
	Balance    *uint256.Int
	Ratio      common.Ratio
}

// Invariants reports the accounting cross-checks used by audits.
type Invariants struct {
	QueueLength   uint64
	QueueTotal    *uint256.Int
	Unstakings    *uint256.Int
	ClaimableSum  *uint256.Int
	Claims        *uint256.Int
	UnderSum      *uint256.Int
	BalanceCovers bool
}

// Holds reports whether every invariant is satisfied.
func (i Invariants) Holds() bool {
	return i.QueueTotal.Eq(i.Unstakings) && i.ClaimableSum.Eq(i.Claims) &&
		i.UnderSum.Eq(i.Unstakings) && i.BalanceCovers
}

type storedConfig struct {
	Owner       []byte
	BondDenom   string
	LiquidToken string
	Validator   string
}

type storedSupply struct {
	Native     *big.Int
	Unstakings *big.Int
	Claims     *big.Int
}

func newStoredSupply(s *Supply) *storedSupply {
	return &storedSupply{
		Native:     common.ToBig(s.Native),
		Unstakings: common.ToBig(s.Unstakings),
		Claims:     common.ToBig(s.Claims),
	}
}

func (s *storedSupply) toSupply() (*Supply, error) {
	native, err := common.FromBig(s.Native)
	if err != nil {
		return nil, err
	}
	unstakings, err := common.FromBig(s.Unstakings)
	if err != nil {
		return nil, err
	}
	claims, err := common.FromBig(s.Claims)
	if err != nil {
		return nil, err
	}
	return &Supply{Native: native, Unstakings: unstakings, Claims: claims}, nil
}

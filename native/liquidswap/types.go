package liquidswap

import (
	"math/big"

	"github.com/holiman/uint256"

	"liquidstake/crypto"
	"liquidstake/native/common"
)

// Config is the persisted module configuration. FeeBps is charged on the
// liquid tokens sold and accrues to liquidity providers.
type Config struct {
	Owner       crypto.Address
	BondDenom   string
	LiquidToken string
	FeeBps      uint64
}

// Supply is the accounting ledger. Issued equals the sum of queued LP values,
// Claims the sum of claimable liquid tokens, and Remainder the truncation
// dust owned by the protocol.
type Supply struct {
	Issued    *uint256.Int
	Claims    *uint256.Int
	Remainder *uint256.Int
}

type Status struct {
	Issued    *uint256.Int
	Claims    *uint256.Int
	Remainder *uint256.Int
	Balance   *uint256.Int
	Ratio     common.Ratio
}

// OrderInfo describes one provider's position.
type OrderInfo struct {
	Issued *uint256.Int
	Native *uint256.Int
	Height uint64
	NodeID uint64
}

// SwapResult reports the outcome of a swap.
type SwapResult struct {
	Native    *uint256.Int
	Fee       *uint256.Int
	Issued    *uint256.Int
	Credited  *uint256.Int
	Remainder *uint256.Int
}

type Invariants struct {
	QueueLength  uint64
	QueueTotal   *uint256.Int
	Issued       *uint256.Int
	ClaimableSum *uint256.Int
	Claims       *uint256.Int
	Remainder    *uint256.Int
	TokensHeld   *uint256.Int
}

// Holds reports whether every invariant is satisfied.
func (i Invariants) Holds() bool {
	owed, overflow := new(uint256.Int).AddOverflow(i.Claims, i.Remainder)
	return i.QueueTotal.Eq(i.Issued) && i.ClaimableSum.Eq(i.Claims) && !overflow && i.TokensHeld.Cmp(owed) >= 0
}

type storedConfig struct {
	Owner       []byte
	BondDenom   string
	LiquidToken string
	FeeBps      uint64
}

type storedSupply struct {
	Issued    *big.Int
	Claims    *big.Int
	Remainder *big.Int
}

func newStoredSupply(s *Supply) *storedSupply {
	return &storedSupply{
		Issued:    common.ToBig(s.Issued),
		Claims:    common.ToBig(s.Claims),
		Remainder: common.ToBig(s.Remainder),
	}
}

func (s *storedSupply) toSupply() (*Supply, error) {
	issued, err := common.FromBig(s.Issued)
	if err != nil {
		return nil, err
	}
	claims, err := common.FromBig(s.Claims)
	if err != nil {
		return nil, err
	}
	remainder, err := common.FromBig(s.Remainder)
	if err != nil {
		return nil, err
	}
	return &Supply{Issued: issued, Claims: claims, Remainder: remainder}, nil
}

package staking

import (
	"github.com/holiman/uint256"

	"liquidstake/crypto"
	"liquidstake/native/common"
	"liquidstake/native/queue"
)

// Config returns the persisted configuration.
func (e *Engine) Config() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadConfig()
}

// Supply returns the accounting ledger.
func (e *Engine) Supply() (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadSupply()
}

func (e *Engine) liquidSupply(cfg *Config) (*uint256.Int, error) {
	if cfg.LiquidToken == "" {
		return common.Zero(), nil
	}
	return e.token.TotalSupply(cfg.LiquidToken)
}

// Ratio is the native value backing one liquid token. It is one until tokens
// exist.
func (e *Engine) Ratio() (common.Ratio, error) {
	if err := e.ready(); err != nil {
		return common.Ratio{}, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return common.Ratio{}, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return common.Ratio{}, err
	}
	issued, err := e.liquidSupply(cfg)
	if err != nil {
		return common.Ratio{}, err
	}
	return common.NewRatio(supply.Native, issued), nil
}

func (e *Engine) Status() (*Status, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	issued, err := e.liquidSupply(cfg)
	if err != nil {
		return nil, err
	}
	bonded, err := e.delegator.Bonded(e.moduleAddress)
	if err != nil {
		return nil, err
	}
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	return &Status{
		Issued:     issued,
		Native:     supply.Native,
		Unstakings: supply.Unstakings,
		Claims:     supply.Claims,
		Bonded:     bonded,
		Balance:    balance,
		Ratio:      common.NewRatio(supply.Native, issued),
	}, nil
}

// Claimable returns the settled value waiting for addr.
func (e *Engine) Claimable(addr crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return common.LoadAmount(e.state, claimableKey(addr))
}

// UnderUnstaking returns the value addr still has queued.
func (e *Engine) UnderUnstaking(addr crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return common.LoadAmount(e.state, underUnstakingKey(addr))
}

// Queue lists the unstaking queue a page at a time.
func (e *Engine) Queue(cursor uint64, limit int) (*queue.PageResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.queue().Page(cursor, limit)
}

// Invariants recomputes the ledger totals from the queue and per-owner
// records.
func (e *Engine) Invariants() (*Invariants, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	stats, err := e.queue().Validate()
	if err != nil {
		return nil, err
	}
	claimants, err := common.NewAddressIndex(e.state, claimantsPrefix).Members()
	if err != nil {
		return nil, err
	}
	claimableSum, err := e.sumRecords(claimants, claimableKey)
	if err != nil {
		return nil, err
	}
	unstakers, err := e.queueOwners(stats.Length)
	if err != nil {
		return nil, err
	}
	underSum, err := e.sumRecords(unstakers, underUnstakingKey)
	if err != nil {
		return nil, err
	}
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	return &Invariants{
		QueueLength:   stats.Length,
		QueueTotal:    stats.Total,
		Unstakings:    supply.Unstakings,
		ClaimableSum:  claimableSum,
		Claims:        supply.Claims,
		UnderSum:      underSum,
		BalanceCovers: balance.Cmp(supply.Claims) >= 0,
	}, nil
}

// queueOwners lists each distinct owner with a node in the queue, in order of
// first appearance.
func (e *Engine) queueOwners(length uint64) ([]crypto.Address, error) {
	seen := make(map[string]struct{})
	var owners []crypto.Address
	it := e.queue().Snapshot(int(length))
	for it.Next() {
		owner := it.Node().Owner
		if _, ok := seen[string(owner.Bytes())]; ok {
			continue
		}
		seen[string(owner.Bytes())] = struct{}{}
		owners = append(owners, owner)
	}
	return owners, it.Err()
}

func (e *Engine) sumRecords(members []crypto.Address, recordKey func(crypto.Address) []byte) (*uint256.Int, error) {
	total := common.Zero()
	for _, addr := range members {
		amount, err := common.LoadAmount(e.state, recordKey(addr))
		if err != nil {
			return nil, err
		}
		if total, err = common.Add(total, amount); err != nil {
			return nil, err
		}
	}
	return total, nil
}

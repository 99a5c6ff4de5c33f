package liquidswap

import (
	"github.com/holiman/uint256"

	"liquidstake/crypto"
	"liquidstake/native/common"
	"liquidstake/native/queue"
)

func (e *Engine) Config() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadConfig()
}

func (e *Engine) Supply() (*Supply, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadSupply()
}

// Status reports the pool totals. Ratio is native value per LP unit.
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
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	return &Status{
		Issued:    supply.Issued,
		Claims:    supply.Claims,
		Remainder: supply.Remainder,
		Balance:   balance,
		Ratio:     common.NewRatio(balance, supply.Issued),
	}, nil
}

func (e *Engine) Claimable(addr crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return common.LoadAmount(e.state, claimableKey(addr))
}

// OrderOf returns addr's queued position. A provider without a position gets
// a zero-valued OrderInfo.
func (e *Engine) OrderOf(addr crypto.Address) (*OrderInfo, error) {
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
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return nil, err
	}
	info := &OrderInfo{Issued: common.Zero()}
	id, err := e.loadQueueID(addr)
	if err != nil {
		return nil, err
	}
	if id != 0 {
		node, err := e.queue().Node(id)
		if err != nil {
			return nil, err
		}
		info.Issued = node.Value
		info.Height = node.Height
		info.NodeID = id
	}
	if info.Native, err = common.NewRatio(balance, supply.Issued).Apply(info.Issued); err != nil {
		return nil, err
	}
	return info, nil
}

// OrderBook lists provider positions a page at a time.
func (e *Engine) OrderBook(cursor uint64, limit int) (*queue.PageResult, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.queue().Page(cursor, limit)
}

// Invariants recomputes the ledger totals from the queue and claimable
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
	members, err := common.NewAddressIndex(e.state, claimantsPrefix).Members()
	if err != nil {
		return nil, err
	}
	claimable := common.Zero()
	for _, addr := range members {
		amount, err := common.LoadAmount(e.state, claimableKey(addr))
		if err != nil {
			return nil, err
		}
		if claimable, err = common.Add(claimable, amount); err != nil {
			return nil, err
		}
	}
	held, err := e.token.Balance(cfg.LiquidToken, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	return &Invariants{
		QueueLength:  stats.Length,
		QueueTotal:   stats.Total,
		Issued:       supply.Issued,
		ClaimableSum: claimable,
		Claims:       supply.Claims,
		Remainder:    supply.Remainder,
		TokensHeld:   held,
	}, nil
}

package staking

import (
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/events"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

// performCheck collects validator rewards and then settles the queue against
// the module balance. Rewards are measured as the balance growth across the
// withdrawal.
func (e *Engine) performCheck(cfg *Config) error {
	balanceBefore, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return err
	}
	bonded, err := e.delegator.Bonded(e.moduleAddress)
	if err != nil {
		return err
	}
	if !bonded.IsZero() {
		if _, err := e.delegator.WithdrawRewards(e.moduleAddress, cfg.Validator); err != nil {
			return fmt.Errorf("staking engine: withdraw rewards: %w", err)
		}
	}
	return e.processFunds(cfg, balanceBefore)
}

// processFunds books rewards into Native, drains the queue with the balance
// not already earmarked for claims, and rebalances the delegation.
func (e *Engine) processFunds(cfg *Config, balanceBefore *uint256.Int) error {
	balance, err := e.bank.Balance(e.moduleAddress, cfg.BondDenom)
	if err != nil {
		return err
	}
	rewards, err := common.Sub(balance, balanceBefore)
	if err != nil {
		return err
	}
	supply, err := e.loadSupply()
	if err != nil {
		return err
	}
	if supply.Native, err = common.Add(supply.Native, rewards); err != nil {
		return err
	}
	available, err := common.Sub(balance, supply.Claims)
	if err != nil {
		return fmt.Errorf("staking engine: claims exceed balance: %w", err)
	}
	if available, err = e.drain(supply, available); err != nil {
		return err
	}
	if err := e.saveSupply(supply); err != nil {
		return err
	}
	return e.rebalance(cfg, supply, available)
}

// drain pays queued requests in FIFO order from available and returns what is
// left. A request larger than what remains is partially paid and stays at the
// head.
func (e *Engine) drain(supply *Supply, available *uint256.Int) (*uint256.Int, error) {
	q := e.queue()
	for settled := 0; settled < MaxSettlementsPerCall && !available.IsZero(); settled++ {
		head, ok, err := q.Head()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		payout := head.Value
		remaining := common.Zero()
		if head.Value.Cmp(available) <= 0 {
			if err := q.RemoveHead(); err != nil {
				return nil, err
			}
		} else {
			payout = common.Clone(available)
			if remaining, err = common.Sub(head.Value, payout); err != nil {
				return nil, err
			}
			if err := q.UpdateValue(head.ID, remaining); err != nil {
				return nil, err
			}
		}
		if supply.Unstakings, err = common.Sub(supply.Unstakings, payout); err != nil {
			return nil, err
		}
		if supply.Claims, err = common.Add(supply.Claims, payout); err != nil {
			return nil, err
		}
		if available, err = common.Sub(available, payout); err != nil {
			return nil, err
		}
		if err := e.creditClaimable(head.Owner, payout); err != nil {
			return nil, err
		}
		if err := e.adjustUnderUnstaking(head.Owner, payout, false); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.StakingSettled{Account: head.Owner, NodeID: head.ID, Paid: payout, Remaining: remaining})
	}
	return available, nil
}

// rebalance delegates idle value when nobody is waiting, and unbonds the
// excess over Native when requests wait with no cash to pay them.
func (e *Engine) rebalance(cfg *Config, supply *Supply, available *uint256.Int) error {
	switch {
	case supply.Unstakings.IsZero() && !available.IsZero():
		if err := e.delegator.Delegate(e.moduleAddress, cfg.Validator, available); err != nil {
			return fmt.Errorf("staking engine: delegate: %w", err)
		}
		e.emitter.Emit(events.StakingRebalanced{Operation: events.RebalanceDelegate, Amount: available})
	case !supply.Unstakings.IsZero() && available.IsZero():
		bonded, err := e.delegator.Bonded(e.moduleAddress)
		if err != nil {
			return err
		}
		if bonded.Cmp(supply.Native) <= 0 {
			return nil
		}
		excess, err := common.Sub(bonded, supply.Native)
		if err != nil {
			return err
		}
		if err := e.delegator.Undelegate(e.moduleAddress, cfg.Validator, excess); err != nil {
			return fmt.Errorf("staking engine: undelegate: %w", err)
		}
		e.emitter.Emit(events.StakingRebalanced{Operation: events.RebalanceUndelegate, Amount: excess})
	}
	return nil
}

// mintLiquid issues liquid tokens for amount of freshly staked native value at
// the current exchange rate.
func (e *Engine) mintLiquid(cfg *Config, receiver crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	supply, err := e.loadSupply()
	if err != nil {
		return nil, err
	}
	liquidSupply, err := e.token.TotalSupply(cfg.LiquidToken)
	if err != nil {
		return nil, err
	}
	toMint := common.Clone(amount)
	if !liquidSupply.IsZero() && !supply.Native.IsZero() {
		if toMint, err = common.MulDiv(amount, liquidSupply, supply.Native); err != nil {
			return nil, err
		}
	}
	if toMint.IsZero() {
		return nil, fmt.Errorf("stake too small to mint: %w", coreerrors.ErrInvalidAmount)
	}
	if supply.Native, err = common.Add(supply.Native, amount); err != nil {
		return nil, err
	}
	if err := e.saveSupply(supply); err != nil {
		return nil, err
	}
	if err := e.token.Mint(cfg.LiquidToken, receiver, toMint); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.StakingStaked{Account: receiver, Amount: amount, Minted: toMint})
	return toMint, nil
}

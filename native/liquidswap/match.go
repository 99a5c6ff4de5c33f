package liquidswap

import (
	"fmt"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
	"liquidstake/core/events"
	"liquidstake/crypto"
	"liquidstake/native/common"
)

// match consumes orderValue LP units from the head of the queue. Each touched
// provider is credited gross*matched/orderValue liquid tokens, truncated. It
// returns the total credited, which never exceeds gross.
func (e *Engine) match(orderValue, gross *uint256.Int) (*uint256.Int, error) {
	if orderValue.IsZero() {
		return nil, coreerrors.ErrOrderTooSmall
	}
	q := e.queue()
	remaining := common.Clone(orderValue)
	credited := common.Zero()
	for !remaining.IsZero() {
		head, ok, err := q.Head()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("liquidswap engine: queue exhausted with %s unmatched: %w", remaining.Dec(), coreerrors.ErrInsufficientLiquidity)
		}
		matched := common.Min(head.Value, remaining)
		if remaining, err = common.Sub(remaining, matched); err != nil {
			return nil, err
		}
		earning, err := common.MulDiv(gross, matched, orderValue)
		if err != nil {
			return nil, err
		}
		left := common.Zero()
		if matched.Eq(head.Value) {
			if err := q.RemoveHead(); err != nil {
				return nil, err
			}
			if err := e.saveQueueID(head.Owner, 0); err != nil {
				return nil, err
			}
		} else {
			if left, err = common.Sub(head.Value, matched); err != nil {
				return nil, err
			}
			if err := q.UpdateValue(head.ID, left); err != nil {
				return nil, err
			}
		}
		if err := e.creditClaimable(head.Owner, earning); err != nil {
			return nil, err
		}
		if credited, err = common.Add(credited, earning); err != nil {
			return nil, err
		}
		e.emitter.Emit(events.SwapOrderFilled{Provider: head.Owner, NodeID: head.ID, Matched: matched, Earned: earning, Remaining: left})
	}
	return credited, nil
}

func (e *Engine) creditClaimable(owner crypto.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	key := claimableKey(owner)
	current, err := common.LoadAmount(e.state, key)
	if err != nil {
		return err
	}
	next, err := common.Add(current, amount)
	if err != nil {
		return err
	}
	if err := common.NewAddressIndex(e.state, claimantsPrefix).Add(owner); err != nil {
		return err
	}
	return common.StoreAmount(e.state, key, next)
}

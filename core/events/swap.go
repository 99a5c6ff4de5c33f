package events

import (
	"github.com/holiman/uint256"

	"liquidstake/core/types"
	"liquidstake/crypto"
)

const (
	// TypeSwapLiquidityAdded is emitted when a provider joins or tops up the queue.
	TypeSwapLiquidityAdded = "swap.liquidityAdded"
	// TypeSwapLiquidityRemoved is emitted when a provider withdraws a position.
	TypeSwapLiquidityRemoved = "swap.liquidityRemoved"
	// TypeSwapExecuted is emitted once per swap after matching completes.
	TypeSwapExecuted = "swap.executed"
	// TypeSwapOrderFilled is emitted for each provider position touched by a swap.
	TypeSwapOrderFilled = "swap.orderFilled"
	// TypeSwapClaimed is emitted when a provider withdraws earned liquid tokens.
	TypeSwapClaimed = "swap.claimed"
	// TypeSwapRemainderSwept is emitted when truncation dust leaves the module.
	TypeSwapRemainderSwept = "swap.remainderSwept"
)

type SwapLiquidityAdded struct {
	Provider crypto.Address
	Native   *uint256.Int
	Issued   *uint256.Int
	NodeID   uint64
}

func (SwapLiquidityAdded) EventType() string { return TypeSwapLiquidityAdded }

func (e SwapLiquidityAdded) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapLiquidityAdded,
		Attributes: map[string]string{
			"provider": formatAddress(e.Provider),
			"native":   formatAmount(e.Native),
			"issued":   formatAmount(e.Issued),
			"nodeId":   formatUint(e.NodeID),
		},
	}
}

type SwapLiquidityRemoved struct {
	Provider crypto.Address
	Issued   *uint256.Int
	Native   *uint256.Int
}

func (SwapLiquidityRemoved) EventType() string { return TypeSwapLiquidityRemoved }

func (e SwapLiquidityRemoved) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapLiquidityRemoved,
		Attributes: map[string]string{
			"provider": formatAddress(e.Provider),
			"issued":   formatAmount(e.Issued),
			"native":   formatAmount(e.Native),
		},
	}
}

type SwapExecuted struct {
	Trader    crypto.Address
	Liquid    *uint256.Int
	Fee       *uint256.Int
	Native    *uint256.Int
	Issued    *uint256.Int
	Remainder *uint256.Int
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }

func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"trader":    formatAddress(e.Trader),
			"liquid":    formatAmount(e.Liquid),
			"fee":       formatAmount(e.Fee),
			"native":    formatAmount(e.Native),
			"issued":    formatAmount(e.Issued),
			"remainder": formatAmount(e.Remainder),
		},
	}
}

type SwapOrderFilled struct {
	Provider  crypto.Address
	NodeID    uint64
	Matched   *uint256.Int
	Earned    *uint256.Int
	Remaining *uint256.Int
}

func (SwapOrderFilled) EventType() string { return TypeSwapOrderFilled }

func (e SwapOrderFilled) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapOrderFilled,
		Attributes: map[string]string{
			"provider":  formatAddress(e.Provider),
			"nodeId":    formatUint(e.NodeID),
			"matched":   formatAmount(e.Matched),
			"earned":    formatAmount(e.Earned),
			"remaining": formatAmount(e.Remaining),
		},
	}
}

type SwapClaimed struct {
	Provider crypto.Address
	Amount   *uint256.Int
}

func (SwapClaimed) EventType() string { return TypeSwapClaimed }

func (e SwapClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapClaimed,
		Attributes: map[string]string{
			"provider": formatAddress(e.Provider),
			"amount":   formatAmount(e.Amount),
		},
	}
}

type SwapRemainderSwept struct {
	Recipient crypto.Address
	Amount    *uint256.Int
}

func (SwapRemainderSwept) EventType() string { return TypeSwapRemainderSwept }

func (e SwapRemainderSwept) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapRemainderSwept,
		Attributes: map[string]string{
			"recipient": formatAddress(e.Recipient),
			"amount":    formatAmount(e.Amount),
		},
	}
}

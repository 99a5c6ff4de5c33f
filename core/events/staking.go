package events

import (
	"github.com/holiman/uint256"

	"liquidstake/core/types"
	"liquidstake/crypto"
)

const (
	// TypeStakingStaked is emitted when native value is converted into liquid tokens.
	TypeStakingStaked = "staking.staked"
	// TypeStakingUnstakeQueued is emitted when a redemption joins the queue.
	TypeStakingUnstakeQueued = "staking.unstakeQueued"
	// TypeStakingSettled is emitted for every payout made while draining the queue.
	TypeStakingSettled = "staking.settled"
	// TypeStakingClaimed is emitted when settled value leaves the module.
	TypeStakingClaimed = "staking.claimed"
	// TypeStakingRebalanced records delegation changes made after settlement.
	TypeStakingRebalanced = "staking.rebalanced"

	RebalanceDelegate   = "delegate"
	RebalanceUndelegate = "undelegate"
)

type StakingStaked struct {
	Account crypto.Address
	Amount  *uint256.Int
	Minted  *uint256.Int
}

func (StakingStaked) EventType() string { return TypeStakingStaked }

func (e StakingStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingStaked,
		Attributes: map[string]string{
			"addr":   formatAddress(e.Account),
			"amount": formatAmount(e.Amount),
			"minted": formatAmount(e.Minted),
		},
	}
}

type StakingUnstakeQueued struct {
	Account crypto.Address
	Burned  *uint256.Int
	Native  *uint256.Int
	NodeID  uint64
	Height  uint64
}

func (StakingUnstakeQueued) EventType() string { return TypeStakingUnstakeQueued }

func (e StakingUnstakeQueued) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingUnstakeQueued,
		Attributes: map[string]string{
			"addr":   formatAddress(e.Account),
			"burned": formatAmount(e.Burned),
			"native": formatAmount(e.Native),
			"nodeId": formatUint(e.NodeID),
			"height": formatUint(e.Height),
		},
	}
}

// StakingSettled captures one payout. Remaining is zero for a full fill.
type StakingSettled struct {
	Account   crypto.Address
	NodeID    uint64
	Paid      *uint256.Int
	Remaining *uint256.Int
}

func (StakingSettled) EventType() string { return TypeStakingSettled }

func (e StakingSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingSettled,
		Attributes: map[string]string{
			"addr":      formatAddress(e.Account),
			"nodeId":    formatUint(e.NodeID),
			"paid":      formatAmount(e.Paid),
			"remaining": formatAmount(e.Remaining),
		},
	}
}

type StakingClaimed struct {
	Account crypto.Address
	Amount  *uint256.Int
}

func (StakingClaimed) EventType() string { return TypeStakingClaimed }

func (e StakingClaimed) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingClaimed,
		Attributes: map[string]string{
			"addr":   formatAddress(e.Account),
			"amount": formatAmount(e.Amount),
		},
	}
}

type StakingRebalanced struct {
	Operation string
	Amount    *uint256.Int
}

func (StakingRebalanced) EventType() string { return TypeStakingRebalanced }

func (e StakingRebalanced) Event() *types.Event {
	return &types.Event{
		Type: TypeStakingRebalanced,
		Attributes: map[string]string{
			"operation": e.Operation,
			"amount":    formatAmount(e.Amount),
		},
	}
}

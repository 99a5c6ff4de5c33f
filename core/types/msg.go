package types

import (
	"github.com/holiman/uint256"

	"liquidstake/crypto"
)

// Module routes.
const (
	RouteStaking    = "staking"
	RouteLiquidSwap = "liquidswap"
	RouteAdmin      = "admin"
)

// Msg is a request applied by the node as one unit of work.
type Msg interface {
	Route() string
	Type() string
}

type MsgStake struct {
	Sender crypto.Address
	Funds  Coins
}

func (MsgStake) Route() string { return RouteStaking }
func (MsgStake) Type() string  { return "stake" }

type MsgUnstake struct {
	Sender crypto.Address
	Amount *uint256.Int
}

func (MsgUnstake) Route() string { return RouteStaking }
func (MsgUnstake) Type() string  { return "unstake" }

type MsgStakingClaim struct {
	Sender crypto.Address
}

func (MsgStakingClaim) Route() string { return RouteStaking }
func (MsgStakingClaim) Type() string  { return "claim" }

// MsgSync reports that funds arrived at the staking module out of band.
type MsgSync struct{}

func (MsgSync) Route() string { return RouteStaking }
func (MsgSync) Type() string  { return "sync" }

type MsgSetLiquidToken struct {
	Sender crypto.Address
	Token  string
}

func (MsgSetLiquidToken) Route() string { return RouteStaking }
func (MsgSetLiquidToken) Type() string  { return "setLiquidToken" }

type MsgAddLiquidity struct {
	Sender crypto.Address
	Funds  Coins
}

func (MsgAddLiquidity) Route() string { return RouteLiquidSwap }
func (MsgAddLiquidity) Type() string  { return "add" }

type MsgRemoveLiquidity struct {
	Sender crypto.Address
}

func (MsgRemoveLiquidity) Route() string { return RouteLiquidSwap }
func (MsgRemoveLiquidity) Type() string  { return "remove" }

// MsgSwap sells Amount liquid tokens held by Sender for native value.
type MsgSwap struct {
	Sender crypto.Address
	Amount *uint256.Int
}

func (MsgSwap) Route() string { return RouteLiquidSwap }
func (MsgSwap) Type() string  { return "swap" }

type MsgSwapClaim struct {
	Sender crypto.Address
}

func (MsgSwapClaim) Route() string { return RouteLiquidSwap }
func (MsgSwapClaim) Type() string  { return "claim" }

type MsgSetSwapFee struct {
	Sender crypto.Address
	FeeBps uint64
}

func (MsgSetSwapFee) Route() string { return RouteLiquidSwap }
func (MsgSetSwapFee) Type() string  { return "setFee" }

type MsgSweepRemainder struct {
	Sender    crypto.Address
	Recipient crypto.Address
}

func (MsgSweepRemainder) Route() string { return RouteLiquidSwap }
func (MsgSweepRemainder) Type() string  { return "sweepRemainder" }

// MsgSetPaused toggles a module. Only that module's owner may send it.
type MsgSetPaused struct {
	Sender crypto.Address
	Module string
	Paused bool
}

func (MsgSetPaused) Route() string { return RouteAdmin }
func (MsgSetPaused) Type() string  { return "setPaused" }

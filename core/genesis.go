package core

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"liquidstake/core/state"
	"liquidstake/crypto"
	"liquidstake/native/bank"
	"liquidstake/native/liquidswap"
	"liquidstake/native/staking"
)

// GenesisAccount seeds a native balance.
type GenesisAccount struct {
	Address crypto.Address
	Amount  *uint256.Int
}

// Genesis is the initial state written the first time a database is opened.
type Genesis struct {
	Staking  staking.Config
	Swap     liquidswap.Config
	Accounts []GenesisAccount
}

func (g Genesis) validate() error {
	denom := strings.TrimSpace(g.Staking.BondDenom)
	if denom == "" {
		return fmt.Errorf("genesis: bond denom required")
	}
	if g.Swap.BondDenom != "" && !strings.EqualFold(g.Swap.BondDenom, denom) {
		return fmt.Errorf("genesis: swap denom %q differs from staking denom %q", g.Swap.BondDenom, denom)
	}
	for i, acc := range g.Accounts {
		if acc.Address.IsZero() {
			return fmt.Errorf("genesis: account %d has no address", i)
		}
	}
	return nil
}

// applyGenesis seeds balances and module configuration once. Later calls see
// the genesis marker and return without touching state.
func (n *Node) applyGenesis(g Genesis) error {
	mgr := state.NewManager(n.db)
	done, err := mgr.GenesisApplied()
	if err != nil {
		mgr.Discard()
		return err
	}
	if done {
		mgr.Discard()
		return nil
	}
	if err := g.validate(); err != nil {
		mgr.Discard()
		return err
	}
	if err := n.writeGenesis(mgr, g); err != nil {
		mgr.Discard()
		return err
	}
	return mgr.Commit()
}

func (n *Node) writeGenesis(mgr *state.Manager, g Genesis) error {
	if err := mgr.SetStateVersion(state.StateVersion); err != nil {
		return err
	}
	mods := n.bind(mgr, 0, nil)
	for _, acc := range g.Accounts {
		if acc.Amount == nil || acc.Amount.IsZero() {
			continue
		}
		if err := mods.Bank.Mint(acc.Address, g.Staking.BondDenom, acc.Amount); err != nil {
			return fmt.Errorf("genesis: fund %s: %w", acc.Address, err)
		}
	}
	if err := mods.Staking.Init(g.Staking); err != nil {
		return fmt.Errorf("genesis: staking: %w", err)
	}
	swapCfg := g.Swap
	if swapCfg.BondDenom == "" {
		swapCfg.BondDenom = g.Staking.BondDenom
	}
	if swapCfg.LiquidToken == "" {
		swapCfg.LiquidToken = g.Staking.LiquidToken
	}
	if swapCfg.Owner.IsZero() {
		swapCfg.Owner = g.Staking.Owner
	}
	if err := mods.Swap.Init(swapCfg); err != nil {
		return fmt.Errorf("genesis: liquidswap: %w", err)
	}
	return mgr.MarkGenesisApplied()
}

// compile-time check that the bank keeper serves both engines.
var (
	_ staking.Bank    = (*bank.Keeper)(nil)
	_ liquidswap.Bank = (*bank.Keeper)(nil)
)

package config

import (
	"fmt"
	"strings"

	"liquidstake/crypto"
	"liquidstake/native/common"
	"liquidstake/native/liquidswap"
	"liquidstake/storage"
)

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.DBBackend)) {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("DBBackend: unsupported backend %q", c.DBBackend)
	}
	if strings.TrimSpace(c.Staking.LiquidToken) == "" {
		return fmt.Errorf("staking: LiquidToken required")
	}
	if _, err := crypto.DecodeAddress(c.Staking.Owner); err != nil {
		return fmt.Errorf("staking: invalid Owner: %w", err)
	}
	if c.Staking.RewardBpsPerBlock > 10_000 {
		return fmt.Errorf("staking: RewardBpsPerBlock above 10000")
	}
	if c.Swap.FeeBps > liquidswap.MaxFeeBps {
		return fmt.Errorf("swap: FeeBps %d above %d", c.Swap.FeeBps, liquidswap.MaxFeeBps)
	}
	if owner := strings.TrimSpace(c.Swap.Owner); owner != "" {
		if _, err := crypto.DecodeAddress(owner); err != nil {
			return fmt.Errorf("swap: invalid Owner: %w", err)
		}
	}
	seen := make(map[string]struct{}, len(c.Genesis.Accounts))
	for i, acc := range c.Genesis.Accounts {
		if _, err := crypto.DecodeAddress(acc.Address); err != nil {
			return fmt.Errorf("genesis: account %d: %w", i, err)
		}
		if _, dup := seen[acc.Address]; dup {
			return fmt.Errorf("genesis: duplicate account %s", acc.Address)
		}
		seen[acc.Address] = struct{}{}
		if _, err := common.ParseAmount(acc.Amount); err != nil {
			return fmt.Errorf("genesis: account %d amount: %w", i, err)
		}
	}
	if c.RPCRateLimit < 0 || c.RPCRateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limit must not be negative")
	}
	if c.Log.MaxBackups < 0 {
		return fmt.Errorf("log: MaxBackups must not be negative")
	}
	return nil
}

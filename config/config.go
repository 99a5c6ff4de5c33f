package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"liquidstake/core"
	"liquidstake/crypto"
	"liquidstake/native/common"
	"liquidstake/native/liquidswap"
	"liquidstake/native/staking"
	"liquidstake/native/validator"
	"liquidstake/storage"
)

const (
	DefaultRPCAddress   = ":8545"
	DefaultDataDir      = "./liquidstake-data"
	DefaultEnvironment  = "local"
	DefaultRPCTokenEnv  = "LIQUIDSTAKE_RPC_TOKEN"
	DefaultBondDenom    = "ulqs"
	DefaultLiquidToken  = "STLQS"
	DefaultValidator    = "validator-0"
	DefaultUnbondBlocks = 100
)

type Config struct {
	RPCAddress         string `toml:"RPCAddress"`
	DataDir            string `toml:"DataDir"`
	DBBackend          string `toml:"DBBackend"`
	Environment        string `toml:"Environment"`
	AllowMigrate       bool   `toml:"AllowMigrate"`
	RPCAuthTokenEnv    string `toml:"RPCAuthTokenEnv"`
	OwnerKeystorePath  string `toml:"OwnerKeystorePath"`
	MetricsPath        string `toml:"MetricsPath"`
	RPCReadTimeoutSecs int    `toml:"RPCReadTimeout"`

	// RPCRateLimit is the per-client request budget per minute; 0 disables it.
	// Clients are keyed by the connection address unless RPCTrustProxyHeaders
	// is set, which should only happen behind a proxy that overwrites
	// X-Real-IP and X-Forwarded-For.
	RPCRateLimit         float64 `toml:"RPCRateLimit"`
	RPCRateLimitBurst    int     `toml:"RPCRateLimitBurst"`
	RPCTrustProxyHeaders bool    `toml:"RPCTrustProxyHeaders"`

	Staking   Staking   `toml:"Staking"`
	Swap      Swap      `toml:"Swap"`
	Genesis   Genesis   `toml:"Genesis"`
	Telemetry Telemetry `toml:"Telemetry"`
	Log       Log       `toml:"Log"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by a default configuration whose owner key is generated into a
// keystore next to it.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = DefaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = DefaultDataDir
	}
	if strings.TrimSpace(c.DBBackend) == "" {
		c.DBBackend = storage.BackendLevelDB
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = DefaultEnvironment
	}
	if strings.TrimSpace(c.RPCAuthTokenEnv) == "" {
		c.RPCAuthTokenEnv = DefaultRPCTokenEnv
	}
	if strings.TrimSpace(c.MetricsPath) == "" {
		c.MetricsPath = "/metrics"
	}
	if c.RPCReadTimeoutSecs <= 0 {
		c.RPCReadTimeoutSecs = 15
	}
	if strings.TrimSpace(c.Staking.BondDenom) == "" {
		c.Staking.BondDenom = DefaultBondDenom
	}
	if strings.TrimSpace(c.Staking.Validator) == "" {
		c.Staking.Validator = DefaultValidator
	}
	if c.Staking.UnbondingBlocks == 0 {
		c.Staking.UnbondingBlocks = DefaultUnbondBlocks
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
}

// RPCAuthToken reads the bearer token from the configured environment
// variable.
func (c *Config) RPCAuthToken() string {
	return strings.TrimSpace(os.Getenv(c.RPCAuthTokenEnv))
}

// NodeOptions converts the file representation into node options.
func (c *Config) NodeOptions() (core.Options, error) {
	owner, err := crypto.DecodeAddress(c.Staking.Owner)
	if err != nil {
		return core.Options{}, fmt.Errorf("staking.Owner: %w", err)
	}
	swapOwner := owner
	if strings.TrimSpace(c.Swap.Owner) != "" {
		if swapOwner, err = crypto.DecodeAddress(c.Swap.Owner); err != nil {
			return core.Options{}, fmt.Errorf("swap.Owner: %w", err)
		}
	}
	accounts := make([]core.GenesisAccount, 0, len(c.Genesis.Accounts))
	for i, acc := range c.Genesis.Accounts {
		addr, err := crypto.DecodeAddress(acc.Address)
		if err != nil {
			return core.Options{}, fmt.Errorf("genesis.Accounts[%d].Address: %w", i, err)
		}
		amount, err := common.ParseAmount(acc.Amount)
		if err != nil {
			return core.Options{}, fmt.Errorf("genesis.Accounts[%d].Amount: %w", i, err)
		}
		accounts = append(accounts, core.GenesisAccount{Address: addr, Amount: amount})
	}
	return core.Options{
		Genesis: core.Genesis{
			Staking: staking.Config{
				Owner:       owner,
				BondDenom:   c.Staking.BondDenom,
				LiquidToken: strings.ToUpper(strings.TrimSpace(c.Staking.LiquidToken)),
				Validator:   c.Staking.Validator,
			},
			Swap: liquidswap.Config{
				Owner:  swapOwner,
				FeeBps: c.Swap.FeeBps,
			},
			Accounts: accounts,
		},
		Validator: validator.Params{
			Name:              c.Staking.Validator,
			Denom:             c.Staking.BondDenom,
			UnbondingBlocks:   c.Staking.UnbondingBlocks,
			RewardBpsPerBlock: c.Staking.RewardBpsPerBlock,
		},
		AllowMigrate: c.AllowMigrate,
	}, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveKeystore(keystorePath, key, ""); err != nil {
		return nil, err
	}
	cfg := &Config{
		OwnerKeystorePath: keystorePath,
		Staking: Staking{
			LiquidToken: DefaultLiquidToken,
			Owner:       key.Address().String(),
		},
		Swap: Swap{FeeBps: liquidswap.DefaultFeeBps},
	}
	cfg.applyDefaults()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "owner.keystore")
}

package config

// Staking configures the staking module and the simulated validator it
// delegates to.
type Staking struct {
	BondDenom         string `toml:"BondDenom"`
	LiquidToken       string `toml:"LiquidToken"`
	Validator         string `toml:"Validator"`
	Owner             string `toml:"Owner"`
	UnbondingBlocks   uint64 `toml:"UnbondingBlocks"`
	RewardBpsPerBlock uint64 `toml:"RewardBpsPerBlock"`
}

// Swap configures the liquidity swap module. An empty Owner falls back to the
// staking owner.
type Swap struct {
	FeeBps uint64 `toml:"FeeBps"`
	Owner  string `toml:"Owner,omitempty"`
}

// GenesisAccount seeds a native balance. Amount is a base-10 integer.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

type Genesis struct {
	Accounts []GenesisAccount `toml:"Accounts"`
}

// Telemetry controls the OTLP exporters. Headers uses the key=value,k2=v2 form.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers,omitempty"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File,omitempty"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}

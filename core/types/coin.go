package types

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Coin is an amount of a bank denomination.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

// NewCoin copies amount into a coin.
func NewCoin(denom string, amount *uint256.Int) Coin {
	c := Coin{Denom: denom, Amount: new(uint256.Int)}
	if amount != nil {
		c.Amount.Set(amount)
	}
	return c
}

func (c Coin) String() string {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.Dec()
	}
	return amount + c.Denom
}

// Coins is an unordered list of coins attached to a message.
type Coins []Coin

// AmountOf returns the amount of denom, zero when absent. Duplicate entries
// are rejected by Validate rather than summed here.
func (cs Coins) AmountOf(denom string) *uint256.Int {
	for _, c := range cs {
		if c.Denom == denom && c.Amount != nil {
			return new(uint256.Int).Set(c.Amount)
		}
	}
	return new(uint256.Int)
}

// Validate rejects empty or duplicate denominations.
func (cs Coins) Validate() error {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		denom := strings.TrimSpace(c.Denom)
		if denom == "" {
			return fmt.Errorf("coin denom required")
		}
		if _, ok := seen[denom]; ok {
			return fmt.Errorf("duplicate denom %q", denom)
		}
		seen[denom] = struct{}{}
	}
	return nil
}

package common

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Ratio is an exact fraction Num/Den. A zero denominator means no reference
// point exists yet, in which case the ratio is taken to be one.
type Ratio struct {
	Num *uint256.Int
	Den *uint256.Int
}

// FallbackRatio is 1/1.
func FallbackRatio() Ratio {
	return Ratio{Num: uint256.NewInt(1), Den: uint256.NewInt(1)}
}

// NewRatio builds num/den, substituting FallbackRatio for a zero denominator.
func NewRatio(num, den *uint256.Int) Ratio {
	if IsZero(den) {
		return FallbackRatio()
	}
	return Ratio{Num: Clone(num), Den: Clone(den)}
}

// Apply returns x*Num/Den, truncated.
func (r Ratio) Apply(x *uint256.Int) (*uint256.Int, error) {
	if IsZero(r.Den) {
		return Clone(x), nil
	}
	return MulDiv(x, r.Num, r.Den)
}

// Decimal renders the ratio with the given number of fractional digits.
func (r Ratio) Decimal(precision int) string {
	if IsZero(r.Den) {
		r = FallbackRatio()
	}
	num := new(big.Float).SetPrec(256).SetInt(ToBig(r.Num))
	den := new(big.Float).SetPrec(256).SetInt(ToBig(r.Den))
	return new(big.Float).SetPrec(256).Quo(num, den).Text('f', precision)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%s/%s", Clone(r.Num).Dec(), Clone(r.Den).Dec())
}

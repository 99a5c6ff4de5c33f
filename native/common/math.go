package common

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	coreerrors "liquidstake/core/errors"
)

// Zero returns a fresh zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// Clone returns a copy of v, treating nil as zero.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// IsZero treats nil as zero.
func IsZero(v *uint256.Int) bool {
	return v == nil || v.IsZero()
}

// Add returns a+b or ErrArithmeticOverflow.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, coreerrors.ErrArithmeticOverflow
	}
	return out, nil
}

// Sub returns a-b or ErrArithmeticUnderflow when b exceeds a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(Clone(a), Clone(b))
	if underflow {
		return nil, coreerrors.ErrArithmeticUnderflow
	}
	return out, nil
}

// Mul returns a*b or ErrArithmeticOverflow.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(Clone(a), Clone(b))
	if overflow {
		return nil, coreerrors.ErrArithmeticOverflow
	}
	return out, nil
}

// MulDiv computes x*y/d with a 512-bit intermediate, truncating toward zero.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if IsZero(d) {
		return nil, coreerrors.ErrDivisionByZero
	}
	out, overflow := new(uint256.Int).MulDivOverflow(Clone(x), Clone(y), d)
	if overflow {
		return nil, coreerrors.ErrArithmeticOverflow
	}
	return out, nil
}

// Min returns a copy of the smaller operand.
func Min(a, b *uint256.Int) *uint256.Int {
	if Clone(a).Lt(Clone(b)) {
		return Clone(a)
	}
	return Clone(b)
}

// FromBig converts a stored amount, rejecting negative or oversized values.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %s: %w", v, coreerrors.ErrArithmeticUnderflow)
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, coreerrors.ErrArithmeticOverflow
	}
	return out, nil
}

// ToBig converts an amount for RLP storage.
func ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// ParseAmount parses a base-10 amount string.
func ParseAmount(raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required: %w", coreerrors.ErrInvalidAmount)
	}
	out, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, coreerrors.ErrInvalidAmount)
	}
	return out, nil
}

package events

import (
	"strconv"

	"github.com/holiman/uint256"

	"liquidstake/crypto"
)

func formatAmount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func formatAddress(a crypto.Address) string {
	return a.String()
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

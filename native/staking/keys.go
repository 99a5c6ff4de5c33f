package staking

import "liquidstake/crypto"

const queueNamespace = "staking"

var (
	configKey = []byte("staking/config")
	supplyKey = []byte("staking/supply")
)

const claimantsPrefix = "staking/claimants"

func claimableKey(addr crypto.Address) []byte {
	return append([]byte("staking/claimable/"), addr.Bytes()...)
}

func underUnstakingKey(addr crypto.Address) []byte {
	return append([]byte("staking/under-unstaking/"), addr.Bytes()...)
}

package liquidswap

import "liquidstake/crypto"

const queueNamespace = "liquidswap"

var (
	configKey = []byte("liquidswap/config")
	supplyKey = []byte("liquidswap/supply")
)

const claimantsPrefix = "liquidswap/claimants"

func claimableKey(addr crypto.Address) []byte {
	return append([]byte("liquidswap/claimable/"), addr.Bytes()...)
}

func queueIDKey(addr crypto.Address) []byte {
	return append([]byte("liquidswap/queue-id/"), addr.Bytes()...)
}

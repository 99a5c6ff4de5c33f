package queue

import (
	"encoding/binary"
)

func rootKey(namespace string) []byte {
	return []byte(namespace + "/queue/root")
}

func nodeKey(namespace string, id uint64) []byte {
	prefix := namespace + "/queue/node/"
	buf := make([]byte, len(prefix)+8)
	copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[len(prefix):], id)
	return buf
}

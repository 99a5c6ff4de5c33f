package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported backends.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Open creates the backend named by kind under dataDir.
func Open(kind, dataDir string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendLevelDB:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewLevelDB(filepath.Join(dataDir, "state"))
	case BackendBolt:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return NewBoltDB(filepath.Join(dataDir, "state.bolt"))
	case BackendMemory:
		return NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown database backend %q", kind)
	}
}

package state

import (
	"errors"
	"fmt"
	"math"

	"liquidstake/storage"
)

// StateVersion identifies the expected on-disk schema layout for the node
// state. Increment this constant whenever breaking changes are made to the
// stored structure.
const StateVersion uint32 = 1

var (
	stateVersionKey = []byte("state/version")
	blockHeightKey  = []byte("state/height")
	genesisDoneKey  = []byte("state/genesis")
	// ErrStateVersionMismatch indicates the stored schema version does not
	// match the version supported by the current binary.
	ErrStateVersionMismatch = errors.New("state: schema version mismatch")
)

// SetStateVersion records the provided schema version in state.
func (m *Manager) SetStateVersion(version uint32) error {
	return m.KVPut(stateVersionKey, uint64(version))
}

// StateVersion returns the stored schema version and a boolean indicating
// whether the value was present.
func (m *Manager) StateVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := m.KVGet(stateVersionKey, &stored)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// BlockHeight returns the height of the last applied unit of work.
func (m *Manager) BlockHeight() (uint64, error) {
	var height uint64
	if _, err := m.KVGet(blockHeightKey, &height); err != nil {
		return 0, err
	}
	return height, nil
}

// SetBlockHeight persists the current height.
func (m *Manager) SetBlockHeight(height uint64) error {
	return m.KVPut(blockHeightKey, height)
}

// GenesisApplied reports whether genesis allocations were already written.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.KVGet(genesisDoneKey, nil)
}

// MarkGenesisApplied records that genesis ran.
func (m *Manager) MarkGenesisApplied() error {
	return m.KVPut(genesisDoneKey, true)
}

// EnsureStateVersion verifies that the on-disk state version matches the
// version supported by this binary. A database without a version is treated
// as fresh. When allowMigrate is true, mismatches are tolerated so operators
// can perform manual migrations.
func EnsureStateVersion(db storage.Database, allowMigrate bool) error {
	if db == nil {
		return fmt.Errorf("state: database must not be nil")
	}
	manager := NewManager(db)
	defer manager.Discard()
	version, ok, err := manager.StateVersion()
	if err != nil {
		return err
	}
	if !ok || version == StateVersion || allowMigrate {
		return nil
	}
	return fmt.Errorf("%w: on-disk=%d expected=%d", ErrStateVersionMismatch, version, StateVersion)
}

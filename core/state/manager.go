package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"liquidstake/storage"
)

// ErrManagerClosed is returned when a manager is used after Commit or Discard.
var ErrManagerClosed = errors.New("state: manager already committed or discarded")

// Manager is the state view handed to a single unit of work. Reads fall
// through to the backing database; writes are journaled in memory and only
// reach the database, as one atomic batch, when Commit is called. Discard
// drops the journal so a failed unit of work leaves no trace.
//
// Manager is not safe for concurrent use.
type Manager struct {
	db      storage.Database
	journal map[string]*journalEntry
	closed  bool
}

type journalEntry struct {
	value   []byte
	deleted bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, journal: make(map[string]*journalEntry)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (m *Manager) readRaw(hashed []byte) ([]byte, error) {
	if entry, ok := m.journal[string(hashed)]; ok {
		if entry.deleted {
			return nil, nil
		}
		return entry.value, nil
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (m *Manager) usable() error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state: manager unavailable")
	}
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// KVPut RLP-encodes value and stores it under the supplied key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if err := m.usable(); err != nil {
		return err
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.journal[string(kvKey(key))] = &journalEntry{value: encoded}
	return nil
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if err := m.usable(); err != nil {
		return false, err
	}
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.readRaw(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes the key. Deleting an absent key is a no-op.
func (m *Manager) KVDelete(key []byte) error {
	if err := m.usable(); err != nil {
		return err
	}
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	m.journal[string(kvKey(key))] = &journalEntry{deleted: true}
	return nil
}

// Pending reports the number of journaled writes.
func (m *Manager) Pending() int {
	if m == nil {
		return 0
	}
	return len(m.journal)
}

// Commit flushes the journal to the database in a single batch and closes the
// manager. Keys are written in sorted order so identical units of work
// produce identical batches.
func (m *Manager) Commit() error {
	if err := m.usable(); err != nil {
		return err
	}
	m.closed = true
	if len(m.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.journal))
	for key := range m.journal {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, key := range keys {
		entry := m.journal[key]
		if entry.deleted {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), entry.value)
	}
	m.journal = nil
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops every journaled write and closes the manager.
func (m *Manager) Discard() {
	if m == nil {
		return
	}
	m.journal = nil
	m.closed = true
}

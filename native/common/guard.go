package common

import (
	"fmt"

	coreerrors "liquidstake/core/errors"
)

// ErrModulePaused is re-exported so callers of Guard need not import the
// error package.
var ErrModulePaused = coreerrors.ErrModulePaused

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%s: %w", module, ErrModulePaused)
	}
	return nil
}

// KVStore is the slice of the state manager the pause registry needs.
type KVStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

// Pauses keeps per-module pause flags in state so toggles commit and roll
// back with the unit of work that made them.
type Pauses struct {
	store KVStore
}

func NewPauses(store KVStore) *Pauses {
	return &Pauses{store: store}
}

func pauseKey(module string) []byte {
	return []byte("pause/" + module)
}

// IsPaused implements PauseView. Read failures report the module as paused.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil || p.store == nil {
		return false
	}
	ok, err := p.store.KVGet(pauseKey(module), nil)
	if err != nil {
		return true
	}
	return ok
}

// SetPaused toggles the flag for module.
func (p *Pauses) SetPaused(module string, paused bool) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("pauses: store unavailable")
	}
	if module == "" {
		return fmt.Errorf("pauses: module required")
	}
	if !paused {
		return p.store.KVDelete(pauseKey(module))
	}
	return p.store.KVPut(pauseKey(module), true)
}

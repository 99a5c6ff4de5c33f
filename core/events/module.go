package events

import (
	"strconv"

	"liquidstake/core/types"
	"liquidstake/crypto"
)

// TypeModulePauseToggled is emitted when an owner pauses or resumes a module.
const TypeModulePauseToggled = "module.pauseToggled"

type ModulePauseToggled struct {
	Module string
	Paused bool
	By     crypto.Address
}

func (ModulePauseToggled) EventType() string { return TypeModulePauseToggled }

func (e ModulePauseToggled) Event() *types.Event {
	return &types.Event{
		Type: TypeModulePauseToggled,
		Attributes: map[string]string{
			"module": e.Module,
			"paused": strconv.FormatBool(e.Paused),
			"by":     formatAddress(e.By),
		},
	}
}

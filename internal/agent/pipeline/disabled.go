package pipeline

import (
	"sync/atomic"

	"github.com/techchat/server/internal/agent/model"
)

// DisabledState marks providers whose credential was rejected. Flags only
// ever go from false to true; a restart is the only way back.
type DisabledState struct {
	gemini atomic.Bool
	openai atomic.Bool
}

func NewDisabledState() *DisabledState {
	return &DisabledState{}
}

func (d *DisabledState) flag(p model.ProviderIdentity) *atomic.Bool {
	switch p {
	case model.ProviderGemini:
		return &d.gemini
	case model.ProviderOpenAI:
		return &d.openai
	default:
		return nil
	}
}

// Disable marks p as permanently unusable. It reports whether this call
// flipped the flag.
func (d *DisabledState) Disable(p model.ProviderIdentity) bool {
	f := d.flag(p)
	if f == nil {
		return false
	}
	return f.CompareAndSwap(false, true)
}

// IsDisabled reports whether p was disabled.
func (d *DisabledState) IsDisabled(p model.ProviderIdentity) bool {
	f := d.flag(p)
	return f != nil && f.Load()
}

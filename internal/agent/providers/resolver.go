package providers

import (
	"strings"

	"github.com/techchat/server/internal/agent/model"
)

// Resolve picks the active provider: the preferred one when its credential
// is present, otherwise Gemini, then OpenAI, then none.
func Resolve(preferred string, hasGemini, hasOpenAI bool) model.ProviderIdentity {
	switch model.ProviderIdentity(strings.ToLower(strings.TrimSpace(preferred))) {
	case model.ProviderGemini:
		if hasGemini {
			return model.ProviderGemini
		}
	case model.ProviderOpenAI:
		if hasOpenAI {
			return model.ProviderOpenAI
		}
	}

	switch {
	case hasGemini:
		return model.ProviderGemini
	case hasOpenAI:
		return model.ProviderOpenAI
	default:
		return model.ProviderNone
	}
}

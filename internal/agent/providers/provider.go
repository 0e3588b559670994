// Package providers wraps each LLM vendor behind one Generate call and
// decides, once per process, which vendor is active.
package providers

import (
	"context"
	"fmt"

	"github.com/techchat/server/internal/agent/model"
	logx "github.com/techchat/server/pkg/logger"
)

// Adapter is the uniform call shape of a vendor. Implementations return
// sanitized, non-empty text or an error; an empty completion is
// errx.ErrEmptyResponse.
type Adapter interface {
	Generate(ctx context.Context, systemInstruction string, history []model.ChatTurn, message string) (string, error)
}

// Availability records which credentials were present at startup.
type Availability struct {
	Gemini bool
	OpenAI bool
}

// Has reports whether p had a credential at startup. None is never available.
func (a Availability) Has(p model.ProviderIdentity) bool {
	switch p {
	case model.ProviderGemini:
		return a.Gemini
	case model.ProviderOpenAI:
		return a.OpenAI
	default:
		return false
	}
}

// Selection is the resolved provider for the process lifetime.
type Selection struct {
	Identity     model.ProviderIdentity
	Availability Availability
	// Adapter is nil when Identity is none.
	Adapter Adapter
	Model   string
}

// New resolves the provider from cfg and builds its adapter.
func New(ctx context.Context, cfg model.ProviderConfig) (*Selection, error) {
	avail := Availability{Gemini: cfg.HasGemini(), OpenAI: cfg.HasOpenAI()}
	sel := &Selection{
		Identity:     Resolve(cfg.Preferred, avail.Gemini, avail.OpenAI),
		Availability: avail,
	}
	sel.Model = cfg.ModelFor(sel.Identity)

	var err error
	switch sel.Identity {
	case model.ProviderGemini:
		sel.Adapter, err = NewGeminiAdapter(ctx, cfg.Gemini)
	case model.ProviderOpenAI:
		sel.Adapter, err = NewOpenAIAdapter(ctx, cfg.OpenAI)
	default:
		logx.Warn().Msg("no LLM provider configured; every chat request will get a fallback reply")
	}
	if err != nil {
		return nil, fmt.Errorf("build %s adapter: %w", sel.Identity, err)
	}

	logx.Info().
		Str("provider", string(sel.Identity)).
		Str("preferred", cfg.Preferred).
		Bool("gemini_configured", avail.Gemini).
		Bool("openai_configured", avail.OpenAI).
		Str("model", sel.Model).
		Msg("provider resolved")
	return sel, nil
}

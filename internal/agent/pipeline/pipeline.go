// Package pipeline turns one chat request into a ChatResult: it decides
// whether a provider can be called, validates input, calls the resolved
// adapter and maps provider failures to fallback replies or errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/techchat/server/internal/agent/conversations"
	"github.com/techchat/server/internal/agent/fallback"
	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/providers"
	logx "github.com/techchat/server/pkg/logger"
)

const (
	// DefaultTimeout bounds one provider call when Options.Timeout is unset.
	DefaultTimeout = 15 * time.Second

	msgRequired      = "Message is required."
	msgFailed        = "Failed to process your message."
	msgEmptyResponse = "The assistant returned an empty response. Please try again."
)

// Options wires a Pipeline. Disabled may be shared between pipelines of the
// same process; nil gets a fresh state.
type Options struct {
	Selection         *providers.Selection
	SystemInstruction string
	Limits            model.LimitsConfig
	Timeout           time.Duration
	// ExposeErrorDetail echoes raw provider errors in results; keep it off
	// in production.
	ExposeErrorDetail bool
	Disabled          *DisabledState
	Now               func() time.Time
}

// Pipeline is safe for concurrent use; it is built once per process.
type Pipeline struct {
	identity     model.ProviderIdentity
	availability providers.Availability
	adapter      providers.Adapter
	modelName    string
	system       string
	limits       model.LimitsConfig
	timeout      time.Duration
	exposeDetail bool
	disabled     *DisabledState
	validate     *validator.Validate
	now          func() time.Time
}

// New builds a Pipeline from opts, filling unset fields with defaults.
func New(opts Options) *Pipeline {
	sel := opts.Selection
	if sel == nil {
		sel = &providers.Selection{Identity: model.ProviderNone}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Disabled == nil {
		opts.Disabled = NewDisabledState()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		identity:     sel.Identity,
		availability: sel.Availability,
		adapter:      sel.Adapter,
		modelName:    sel.Model,
		system:       opts.SystemInstruction,
		limits:       opts.Limits.Normalized(),
		timeout:      opts.Timeout,
		exposeDetail: opts.ExposeErrorDetail,
		disabled:     opts.Disabled,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		now:          opts.Now,
	}
}

// Provider returns the provider resolved at startup.
func (p *Pipeline) Provider() model.ProviderIdentity {
	return p.identity
}

// Model returns the configured model name of the resolved provider.
func (p *Pipeline) Model() string {
	return p.modelName
}

// Limits returns the effective message and history limits.
func (p *Pipeline) Limits() model.LimitsConfig {
	return p.limits
}

// Availability returns which credentials were present at startup.
func (p *Pipeline) Availability() providers.Availability {
	return p.availability
}

// ProviderDisabled reports whether the resolved provider was disabled after
// a credential rejection.
func (p *Pipeline) ProviderDisabled() bool {
	return p.disabled.IsDisabled(p.identity)
}

func (p *Pipeline) available() bool {
	return p.identity != model.ProviderNone &&
		p.adapter != nil &&
		p.availability.Has(p.identity) &&
		!p.disabled.IsDisabled(p.identity)
}

// Handle runs one request through the pipeline. It never returns nil.
func (p *Pipeline) Handle(ctx context.Context, in model.ChatInput) *model.ChatResult {
	started := p.now()

	if !p.available() {
		reason := model.ReasonProviderUnavailable
		if p.identity == model.ProviderNone {
			reason = model.ReasonMissingKey
		}
		return p.fallback(started, in.Message, reason)
	}

	req := model.ConversationRequest{
		Message: conversations.Sanitize(in.Message),
		History: conversations.Normalize(in.History, p.limits.MaxHistoryItems),
	}
	if msg := p.validateRequest(req); msg != "" {
		return p.finish(started, &model.ChatResult{
			Success: false,
			Error:   msg,
			Status:  http.StatusBadRequest,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	reply, err := p.adapter.Generate(callCtx, p.system, req.History, req.Message)
	if err == nil {
		return p.finish(started, &model.ChatResult{
			Success: true,
			Reply:   reply,
			Usage: &model.Usage{
				HistoryItemsUsed: len(req.History),
				InputChars:       utf8.RuneCountInString(req.Message),
				OutputChars:      utf8.RuneCountInString(reply),
			},
			Status: http.StatusOK,
		})
	}

	return p.handleFailure(started, req.Message, err)
}

func (p *Pipeline) handleFailure(started time.Time, message string, err error) *model.ChatResult {
	failure := providers.Classify(err)
	switch failure {
	case providers.FailureCredential:
		if p.disabled.Disable(p.identity) {
			logx.Error().Err(err).
				Str("provider", string(p.identity)).
				Str("credential", p.identity.CredentialVar()).
				Msg("provider rejected its credential; disabled until restart")
		}
		return p.fallback(started, message, model.ReasonInvalidKey)

	case providers.FailureQuota:
		logx.Warn().Err(err).Str("provider", string(p.identity)).Msg("provider quota exceeded")
		return p.fallback(started, message, model.ReasonQuotaExceeded)

	case providers.FailureEmpty:
		logx.Warn().Str("provider", string(p.identity)).Msg("provider returned an empty response")
		return p.finish(started, &model.ChatResult{
			Success: false,
			Error:   msgEmptyResponse,
			Status:  http.StatusInternalServerError,
		})

	default:
		ev := logx.Error().Err(err).Str("provider", string(p.identity))
		if errors.Is(err, context.DeadlineExceeded) {
			ev = ev.Dur("timeout", p.timeout)
		}
		ev.Msg("provider call failed")

		res := &model.ChatResult{
			Success: false,
			Error:   msgFailed,
			Status:  http.StatusInternalServerError,
		}
		if p.exposeDetail {
			res.Details = err.Error()
		}
		return p.finish(started, res)
	}
}

func (p *Pipeline) validateRequest(req model.ConversationRequest) string {
	if err := p.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "Message" {
			return msgRequired
		}
		return "Invalid request."
	}
	maxTag := fmt.Sprintf("max=%d", p.limits.MaxMessageLength)
	if err := p.validate.Var(req.Message, maxTag); err != nil {
		return fmt.Sprintf("Message too long. Max %d.", p.limits.MaxMessageLength)
	}
	return ""
}

func (p *Pipeline) fallback(started time.Time, message any, reason model.FallbackReason) *model.ChatResult {
	return p.finish(started, &model.ChatResult{
		Success:        true,
		Reply:          fallback.Build(conversations.Sanitize(message), reason, p.identity),
		Fallback:       true,
		FallbackReason: reason,
		Status:         http.StatusOK,
	})
}

func (p *Pipeline) finish(started time.Time, res *model.ChatResult) *model.ChatResult {
	end := p.now()
	res.Provider = string(p.identity)
	res.Model = p.modelName
	res.Timestamp = end.UTC().Format(time.RFC3339)
	res.LatencyMs = end.Sub(started).Milliseconds()
	return res
}

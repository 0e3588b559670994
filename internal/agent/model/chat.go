package model

// Role tags the speaker of a ChatTurn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatTurn is one message of caller-supplied history. Text is never empty
// once the turn has been through the normalizer.
type ChatTurn struct {
	Role Role   `json:"role" validate:"oneof=user model"`
	Text string `json:"text" validate:"required"`
}

// ChatInput is the loosely decoded POST /chat body. Both fields keep the
// caller's JSON shape until the pipeline sanitizes and normalizes them.
type ChatInput struct {
	Message any `json:"message"`
	History any `json:"history,omitempty"`
}

// ConversationRequest is the validated request handed to a provider.
type ConversationRequest struct {
	Message string     `validate:"required"`
	History []ChatTurn `validate:"dive"`
}

// ProviderIdentity names the LLM vendor serving this process.
type ProviderIdentity string

const (
	ProviderGemini ProviderIdentity = "gemini"
	ProviderOpenAI ProviderIdentity = "openai"
	ProviderNone   ProviderIdentity = "none"
)

// Label is the human readable vendor name used in fallback replies.
// None labels as Gemini, the default provider.
func (p ProviderIdentity) Label() string {
	if p == ProviderOpenAI {
		return "OpenAI"
	}
	return "Gemini"
}

// CredentialVar is the environment variable holding the provider's key.
func (p ProviderIdentity) CredentialVar() string {
	if p == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GEMINI_API_KEY"
}

// FallbackReason explains why a canned reply was produced.
type FallbackReason string

const (
	ReasonMissingKey          FallbackReason = "missing_key"
	ReasonProviderUnavailable FallbackReason = "provider_unavailable"
	ReasonInvalidKey          FallbackReason = "invalid_key"
	ReasonQuotaExceeded       FallbackReason = "quota_exceeded"
)

// Usage reports request/response sizes for a successful provider call.
type Usage struct {
	HistoryItemsUsed int `json:"historyItemsUsed"`
	InputChars       int `json:"inputChars"`
	OutputChars      int `json:"outputChars"`
}

// ChatResult is the pipeline output and the POST /chat response body.
type ChatResult struct {
	Success        bool           `json:"success"`
	Reply          string         `json:"reply,omitempty"`
	Fallback       bool           `json:"fallback,omitempty"`
	FallbackReason FallbackReason `json:"fallbackReason,omitempty"`
	Error          string         `json:"error,omitempty"`
	Details        string         `json:"details,omitempty"`
	Usage          *Usage         `json:"usage,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
	Timestamp      string         `json:"timestamp"`
	LatencyMs      int64          `json:"latencyMs"`

	// Status is the HTTP status the host should answer with.
	Status int `json:"-"`
}

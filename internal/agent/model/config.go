package model

import (
	"strings"
	"time"
)

// ================ Config ================
type ProviderConfig struct {
	Preferred string        `envconfig:"AI_PROVIDER"`
	Timeout   time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"15s"`
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
}

type GeminiConfig struct {
	APIKey      string  `envconfig:"GEMINI_API_KEY"`
	BaseURL     string  `envconfig:"GEMINI_BASE_URL"`
	Model       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	MaxTokens   int     `envconfig:"GEMINI_MAX_TOKENS" default:"2048"`
	Temperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.9"`
}

type OpenAIConfig struct {
	APIKey      string  `envconfig:"OPENAI_API_KEY"`
	BaseURL     string  `envconfig:"OPENAI_BASE_URL"`
	Model       string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	MaxTokens   int     `envconfig:"OPENAI_MAX_TOKENS" default:"1200"`
	Temperature float32 `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
}

// HasGemini reports whether a non-blank Gemini credential is configured.
func (c ProviderConfig) HasGemini() bool {
	return strings.TrimSpace(c.Gemini.APIKey) != ""
}

// HasOpenAI reports whether a non-blank OpenAI credential is configured.
func (c ProviderConfig) HasOpenAI() bool {
	return strings.TrimSpace(c.OpenAI.APIKey) != ""
}

// ModelFor returns the configured model name for p. Only Gemini reports the
// Gemini model; OpenAI and none report the OpenAI model.
func (c ProviderConfig) ModelFor(p ProviderIdentity) string {
	if p == ProviderGemini {
		return c.Gemini.Model
	}
	return c.OpenAI.Model
}

type LimitsConfig struct {
	MaxMessageLength int `envconfig:"CHAT_MAX_MESSAGE_LENGTH" default:"3000"`
	MaxHistoryItems  int `envconfig:"CHAT_MAX_HISTORY_ITEMS" default:"10"`
}

const (
	DefaultMaxMessageLength = 3000
	DefaultMaxHistoryItems  = 10
)

// Normalized replaces non-positive limits with the defaults.
func (l LimitsConfig) Normalized() LimitsConfig {
	if l.MaxMessageLength <= 0 {
		l.MaxMessageLength = DefaultMaxMessageLength
	}
	if l.MaxHistoryItems <= 0 {
		l.MaxHistoryItems = DefaultMaxHistoryItems
	}
	return l
}

type RateLimitConfig struct {
	Window      time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
	MaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"45"`
	// Backend is "memory" or "redis".
	Backend string `envconfig:"RATE_LIMIT_BACKEND" default:"memory"`
}

type PromptConfig struct {
	AssistantName string `envconfig:"PROMPT_ASSISTANT_NAME" default:"TechChat"`
}

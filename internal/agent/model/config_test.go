package model

import "testing"

func TestProviderConfig_ModelFor(t *testing.T) {
	cfg := ProviderConfig{
		Gemini: GeminiConfig{Model: "gemini-2.0-flash"},
		OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
	}
	tests := map[ProviderIdentity]string{
		ProviderGemini: "gemini-2.0-flash",
		ProviderOpenAI: "gpt-4o-mini",
		ProviderNone:   "gpt-4o-mini",
	}
	for p, want := range tests {
		if got := cfg.ModelFor(p); got != want {
			t.Errorf("ModelFor(%s) = %q, want %q", p, got, want)
		}
	}
}

func TestLimitsConfig_Normalized(t *testing.T) {
	got := LimitsConfig{MaxMessageLength: -1, MaxHistoryItems: 0}.Normalized()
	if got.MaxMessageLength != DefaultMaxMessageLength || got.MaxHistoryItems != DefaultMaxHistoryItems {
		t.Fatalf("unexpected limits %+v", got)
	}
}

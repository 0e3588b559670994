package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/pipeline"
	"github.com/techchat/server/internal/core"
	logx "github.com/techchat/server/pkg/logger"
)

const maxChatBodyBytes = 64 << 10

type handler struct {
	pipeline *pipeline.Pipeline
	env      core.Environment
	now      func() time.Time
}

// ConfigResponse is the read-only snapshot served by GET /config.
type ConfigResponse struct {
	Success                     bool   `json:"success"`
	ServerTime                  string `json:"serverTime"`
	Provider                    string `json:"provider"`
	ProviderConfigured          bool   `json:"providerConfigured"`
	GeminiConfigured            bool   `json:"geminiConfigured"`
	OpenAIConfigured            bool   `json:"openaiConfigured"`
	Model                       string `json:"model"`
	MaxMessageLength            int    `json:"maxMessageLength"`
	MaxHistoryItems             int    `json:"maxHistoryItems"`
	ProviderTemporarilyDisabled bool   `json:"providerTemporarilyDisabled"`
}

// HealthResponse is the GET /health liveness body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Env       string `json:"env"`
}

// Chat handles POST /chat.
func (h *handler) Chat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)

	var in model.ChatInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	res := h.pipeline.Handle(r.Context(), in)

	logx.Info().
		Str("request_id", middleware.GetReqID(r.Context())).
		Bool("success", res.Success).
		Bool("fallback", res.Fallback).
		Str("fallback_reason", string(res.FallbackReason)).
		Int("status", res.Status).
		Int64("latency_ms", res.LatencyMs).
		Msg("chat handled")

	writeJSON(w, res.Status, res)
}

// Config handles GET /config.
func (h *handler) Config(w http.ResponseWriter, r *http.Request) {
	avail := h.pipeline.Availability()
	limits := h.pipeline.Limits()
	provider := h.pipeline.Provider()

	writeJSON(w, http.StatusOK, ConfigResponse{
		Success:                     true,
		ServerTime:                  h.now().UTC().Format(time.RFC3339),
		Provider:                    string(provider),
		ProviderConfigured:          provider != model.ProviderNone,
		GeminiConfigured:            avail.Gemini,
		OpenAIConfigured:            avail.OpenAI,
		Model:                       h.pipeline.Model(),
		MaxMessageLength:            limits.MaxMessageLength,
		MaxHistoryItems:             limits.MaxHistoryItems,
		ProviderTemporarilyDisabled: h.pipeline.ProviderDisabled(),
	})
}

// Health handles GET /health.
func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Provider:  string(h.pipeline.Provider()),
		Model:     h.pipeline.Model(),
		Env:       h.env.String(),
	})
}

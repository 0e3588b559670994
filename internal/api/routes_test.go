package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/pipeline"
	"github.com/techchat/server/internal/agent/providers"
	"github.com/techchat/server/internal/agent/ratelimit"
	"github.com/techchat/server/internal/core"
	errx "github.com/techchat/server/internal/core/error"
)

type adapterStub struct {
	mu    sync.Mutex
	calls int
	reply string
	err   error
}

func (s *adapterStub) Generate(context.Context, string, []model.ChatTurn, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.reply, s.err
}

func (s *adapterStub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var fixedNow = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func newRouter(sel *providers.Selection, limiter *ratelimit.Limiter) http.Handler {
	return newRouterWithDeps(sel, Deps{Limiter: limiter})
}

func newRouterWithDeps(sel *providers.Selection, deps Deps) http.Handler {
	deps.Pipeline = pipeline.New(pipeline.Options{
		Selection:         sel,
		SystemInstruction: "You are TechChat.",
		Limits:            model.LimitsConfig{MaxMessageLength: 3000, MaxHistoryItems: 10},
	})
	deps.Environment = core.Testing
	deps.Now = fixedNow
	return NewRouter(deps)
}

func configured(a providers.Adapter) *providers.Selection {
	return &providers.Selection{
		Identity:     model.ProviderOpenAI,
		Availability: providers.Availability{OpenAI: true},
		Adapter:      a,
		Model:        "gpt-4o-mini",
	}
}

func postChat(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, model.ChatResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var res model.ChatResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return rr, res
}

func TestChat_NoProviderConfigured(t *testing.T) {
	h := newRouter(&providers.Selection{Identity: model.ProviderNone}, nil)

	rr, res := postChat(t, h, `{"message":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !res.Success || !res.Fallback || res.FallbackReason != model.ReasonMissingKey || res.Reply == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestChat_Validation(t *testing.T) {
	h := newRouter(configured(&adapterStub{reply: "ok"}), nil)

	for name, body := range map[string]string{
		"empty":    `{"message":""}`,
		"too long": `{"message":"` + strings.Repeat("x", 3001) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr, res := postChat(t, h, body)
			if rr.Code != http.StatusBadRequest || res.Success {
				t.Fatalf("expected 400 failure, got %d %+v", rr.Code, res)
			}
		})
	}
}

func TestChat_MalformedBody(t *testing.T) {
	h := newRouter(configured(&adapterStub{reply: "ok"}), nil)

	rr, res := postChat(t, h, `{"message":`)
	if rr.Code != http.StatusBadRequest || res.Success || res.Error == "" {
		t.Fatalf("expected 400, got %d %+v", rr.Code, res)
	}
}

func TestChat_Success(t *testing.T) {
	h := newRouter(configured(&adapterStub{reply: "Channels synchronize goroutines."}), nil)

	rr, res := postChat(t, h, `{"message":"what is a channel?","history":[{"role":"user","text":"hi"},{"role":"model","text":"hello"}]}`)
	if rr.Code != http.StatusOK || !res.Success || res.Fallback {
		t.Fatalf("unexpected %d %+v", rr.Code, res)
	}
	if res.Usage == nil || res.Usage.HistoryItemsUsed != 2 {
		t.Fatalf("unexpected usage %+v", res.Usage)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestChat_InvalidKeyDisablesProvider(t *testing.T) {
	stub := &adapterStub{err: errx.New(errors.New("bad key"), http.StatusUnauthorized, "unauthorized")}
	h := newRouter(configured(stub), nil)

	_, first := postChat(t, h, `{"message":"hello"}`)
	if !first.Success || !first.Fallback || first.FallbackReason != model.ReasonInvalidKey {
		t.Fatalf("unexpected first %+v", first)
	}
	_, second := postChat(t, h, `{"message":"hello"}`)
	if !second.Success || !second.Fallback {
		t.Fatalf("unexpected second %+v", second)
	}
	if stub.Calls() != 1 {
		t.Fatalf("adapter called %d times, want 1", stub.Calls())
	}

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var cfg ConfigResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if !cfg.ProviderTemporarilyDisabled {
		t.Fatal("config should report the provider as disabled")
	}
}

func TestChat_EmptyResponse(t *testing.T) {
	h := newRouter(configured(&adapterStub{err: errx.ErrEmptyResponse}), nil)

	rr, res := postChat(t, h, `{"message":"hello"}`)
	if rr.Code != http.StatusInternalServerError || res.Success || res.Fallback {
		t.Fatalf("unexpected %d %+v", rr.Code, res)
	}
	if !strings.Contains(res.Error, "empty response") {
		t.Fatalf("expected empty-response message, got %q", res.Error)
	}
}

func TestChat_RateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), model.RateLimitConfig{Window: time.Minute, MaxRequests: 2})
	stub := &adapterStub{reply: "ok"}
	h := newRouter(configured(stub), limiter)

	for i := 0; i < 2; i++ {
		if rr, _ := postChat(t, h, `{"message":"hello"}`); rr.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hello"}`))
	req.RemoteAddr = "203.0.113.7:40000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.RetryAfterMs <= 0 {
		t.Fatalf("unexpected body %+v", body)
	}
	if stub.Calls() != 2 {
		t.Fatalf("rejected request reached the adapter: %d calls", stub.Calls())
	}

	other := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hello"}`))
	other.RemoteAddr = "198.51.100.1:1234"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("another client should be admitted, got %d", rr.Code)
	}
}

func TestConfig(t *testing.T) {
	sel := configured(&adapterStub{})
	sel.Availability.Gemini = true
	h := newRouter(sel, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var cfg ConfigResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := ConfigResponse{
		Success:            true,
		ServerTime:         "2026-01-02T03:04:05Z",
		Provider:           "openai",
		ProviderConfigured: true,
		GeminiConfigured:   true,
		OpenAIConfigured:   true,
		Model:              "gpt-4o-mini",
		MaxMessageLength:   3000,
		MaxHistoryItems:    10,
	}
	if cfg != want {
		t.Fatalf("config = %+v, want %+v", cfg, want)
	}
}

func TestHealth(t *testing.T) {
	h := newRouter(&providers.Selection{Identity: model.ProviderNone, Model: "gpt-4o-mini"}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body HealthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rr.Code != http.StatusOK || body.Status != "ok" || body.Provider != "none" || body.Env != "testing" {
		t.Fatalf("unexpected health %d %+v", rr.Code, body)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newRouter(&providers.Selection{Identity: model.ProviderNone}, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error != "Method not allowed" {
		t.Fatalf("unexpected 405 body %q", rr.Body.String())
	}
}

func postChatForwarded(h http.Handler, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestChat_RateLimitIgnoresForwardedHeadersByDefault(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(store, model.RateLimitConfig{Window: time.Minute, MaxRequests: 2})
	stub := &adapterStub{reply: "ok"}
	h := newRouterWithDeps(configured(stub), Deps{Limiter: limiter})

	admitted := 0
	for i := 0; i < 20; i++ {
		if postChatForwarded(h, fmt.Sprintf("198.51.100.%d", i+1)) == http.StatusOK {
			admitted++
		}
	}
	if admitted != 2 {
		t.Fatalf("admitted %d requests, want 2", admitted)
	}
	if stub.Calls() != 2 {
		t.Fatalf("adapter called %d times, want 2", stub.Calls())
	}
	if store.Len() != 1 {
		t.Fatalf("tracked %d keys, want 1", store.Len())
	}
}

func TestChat_RateLimitTrustedProxyKeysOnForwardedFor(t *testing.T) {
	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.NewLimiter(store, model.RateLimitConfig{Window: time.Minute, MaxRequests: 1})
	h := newRouterWithDeps(configured(&adapterStub{reply: "ok"}), Deps{Limiter: limiter, TrustProxy: true})

	for _, ip := range []string{"198.51.100.1", "198.51.100.2"} {
		if code := postChatForwarded(h, ip); code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", ip, code)
		}
	}
	if code := postChatForwarded(h, "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeated client, got %d", code)
	}
	if store.Len() != 2 {
		t.Fatalf("tracked %d keys, want 2", store.Len())
	}
}

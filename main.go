package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/techchat/server/internal/agent/model"
	"github.com/techchat/server/internal/agent/observers"
	"github.com/techchat/server/internal/agent/pipeline"
	"github.com/techchat/server/internal/agent/prompts"
	"github.com/techchat/server/internal/agent/providers"
	"github.com/techchat/server/internal/agent/ratelimit"
	"github.com/techchat/server/internal/api"
	"github.com/techchat/server/internal/core"
	"github.com/techchat/server/internal/server"
	logx "github.com/techchat/server/pkg/logger"
	pkgredis "github.com/techchat/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the chat proxy, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Server server.Config
	Redis  pkgredis.Config

	// Chat pipeline
	Provider  model.ProviderConfig
	Limits    model.LimitsConfig
	RateLimit model.RateLimitConfig
	Prompt    model.PromptConfig
}

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file
	envFileErr := godotenv.Load(".env")

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Init()
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	env := core.ParseEnvironment(cfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env})
	if envFileErr != nil {
		logx.Debug().Err(envFileErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sel, err := providers.New(ctx, cfg.Provider)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise provider")
	}

	system, err := prompts.RenderSystem(observers.WithPromptCallbacks(ctx, "SystemPrompt"), cfg.Prompt)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to render system prompt")
	}

	store, closeStore := newRateLimitStore(ctx, cfg)
	defer closeStore()

	p := pipeline.New(pipeline.Options{
		Selection:         sel,
		SystemInstruction: system,
		Limits:            cfg.Limits,
		Timeout:           cfg.Provider.Timeout,
		ExposeErrorDetail: env.ExposeErrorDetail(),
	})

	router := api.NewRouter(api.Deps{
		Pipeline:    p,
		Limiter:     ratelimit.NewLimiter(store, cfg.RateLimit),
		Environment: env,
		TrustProxy:  cfg.Server.TrustProxy,
	})

	srv := server.New(router, cfg.Server)
	logx.Info().
		Str("env", env.String()).
		Str("addr", srv.Addr()).
		Str("provider", string(sel.Identity)).
		Str("model", sel.Model).
		Msg("TechChat proxy ready")

	if err := srv.Run(ctx, shutdownTimeout); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped with error")
	}
}

// newRateLimitStore returns the configured store and a cleanup func.
// A Redis backend that cannot be reached falls back to process memory.
func newRateLimitStore(ctx context.Context, cfg AppConfig) (ratelimit.Store, func()) {
	if !strings.EqualFold(strings.TrimSpace(cfg.RateLimit.Backend), "redis") {
		return ratelimit.NewMemoryStore(), func() {}
	}

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to initialise Redis client; using in-memory rate limiting")
		return ratelimit.NewMemoryStore(), func() {}
	}
	logx.Info().Msg("Connected to Redis for rate limiting")
	return ratelimit.NewRedisStore(rdb), func() { _ = rdb.Close() }
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/techchat/server/internal/agent/pipeline"
	"github.com/techchat/server/internal/agent/ratelimit"
	"github.com/techchat/server/internal/core"
)

// Deps are the process-scoped collaborators of the HTTP surface.
type Deps struct {
	Pipeline    *pipeline.Pipeline
	Limiter     *ratelimit.Limiter
	Environment core.Environment
	Now         func() time.Time

	// TrustProxy keys clients on X-Forwarded-For / X-Real-IP. Enable it only
	// behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter creates the chi router serving /chat, /config and /health.
func NewRouter(deps Deps) *chi.Mux {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &handler{
		pipeline: deps.Pipeline,
		env:      deps.Environment,
		now:      deps.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/config", h.Config)
	r.With(RateLimit(deps.Limiter, deps.Now)).Post("/chat", h.Chat)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}

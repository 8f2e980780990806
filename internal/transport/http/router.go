// Package httptransport assembles the HTTP surface: shared middleware, the
// public endpoints and the authenticated module handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/admin"
	"qualify/pkg/platform/middleware/auth"
	"qualify/pkg/platform/middleware/metadata"
	"qualify/pkg/platform/middleware/request"
	"qualify/pkg/platform/middleware/requesttime"
)

// Registrar is a module handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// Deps is everything the router needs from the composition root.
type Deps struct {
	Logger         *slog.Logger
	TokenValidator auth.TokenValidator
	Token          *TokenHandler
	LoginLimit     func(http.Handler) http.Handler
	Audit          *AuditHandler
	Modules        []Registrar
	Metrics        http.Handler
	MetricsToken   string
	RequestTimeout time.Duration
}

// NewRouter wires middleware and routes. Everything except /healthz, /metrics
// and /auth/token requires a bearer token.
func NewRouter(deps Deps) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.With(admin.RequireAdminToken(deps.MetricsToken, deps.Logger)).Handle("/metrics", deps.Metrics)
	}
	if deps.Token != nil {
		r.Group(func(r chi.Router) {
			if deps.LoginLimit != nil {
				r.Use(deps.LoginLimit)
			}
			deps.Token.Register(r)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.TokenValidator, deps.Logger))
		for _, m := range deps.Modules {
			m.Register(r)
		}
		if deps.Audit != nil {
			deps.Audit.Register(r)
		}
	})
	return r
}

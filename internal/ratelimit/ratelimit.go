// Package ratelimit throttles unauthenticated endpoints by client IP using a
// sliding window. It guards the password grant so credentials cannot be
// guessed at line rate.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/metadata"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store counts requests per key. Allow records the request only when it is
// allowed.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// Policy is the request budget per key and window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Metrics counts throttling decisions.
type Metrics struct {
	Decisions *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "qualify_ratelimit_decisions_total",
			Help: "Rate limit decisions by scope and outcome",
		}, []string{"scope", "outcome"}),
	}
}

func (m *Metrics) observe(scope, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(scope, outcome).Inc()
}

// Limiter builds per-scope middleware over a shared store.
type Limiter struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

func New(store Store, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	l := &Limiter{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Middleware limits requests per client IP under scope. A zero policy
// disables the check. Store failures let the request through.
func (l *Limiter) Middleware(scope string, policy Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if policy.Limit <= 0 || policy.Window <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := metadata.ClientIPFromRequest(r)

			result, err := l.store.Allow(ctx, scope+":"+ip, policy.Limit, policy.Window)
			if err != nil {
				l.metrics.observe(scope, "error")
				l.logger.ErrorContext(ctx, "rate limit check failed", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			writeHeaders(w, result)
			if !result.Allowed {
				l.metrics.observe(scope, "limited")
				l.logger.WarnContext(ctx, "rate limit exceeded", "scope", scope, "client_ip", ip)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
				return
			}
			l.metrics.observe(scope, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func writeHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

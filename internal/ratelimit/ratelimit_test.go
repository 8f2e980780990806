package ratelimit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qualify/internal/ratelimit"
	"qualify/internal/ratelimit/mocks"
	"qualify/internal/ratelimit/store"
	"qualify/pkg/platform/clock"
)

//go:generate mockgen -source=ratelimit.go -destination=mocks/mocks.go -package=mocks Store

type MiddlewareSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	metrics *ratelimit.Metrics
	limiter *ratelimit.Limiter
	handler http.Handler
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.metrics = ratelimit.NewMetrics(prometheus.NewRegistry())

	limiter, err := ratelimit.New(s.store,
		ratelimit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		ratelimit.WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.limiter = limiter
	s.handler = limiter.Middleware("login", ratelimit.Policy{Limit: 5, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)
}

func (s *MiddlewareSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *MiddlewareSuite) request() *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	req.RemoteAddr = "10.1.2.3:51234"
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// =============================================================================
// Decisions
// =============================================================================

func (s *MiddlewareSuite) TestAllowed() {
	reset := time.Date(2026, 7, 1, 9, 1, 0, 0, time.UTC)
	s.store.EXPECT().Allow(gomock.Any(), "login:10.1.2.3", 5, time.Minute).
		Return(&ratelimit.Result{Allowed: true, Limit: 5, Remaining: 4, ResetAt: reset}, nil)

	rr := s.request()

	s.Equal(http.StatusNoContent, rr.Code)
	s.Equal("5", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("4", rr.Header().Get("X-RateLimit-Remaining"))
	s.Equal("1782896460", rr.Header().Get("X-RateLimit-Reset"))
	s.Empty(rr.Header().Get("Retry-After"))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("login", "allowed")))
}

func (s *MiddlewareSuite) TestLimited() {
	s.store.EXPECT().Allow(gomock.Any(), "login:10.1.2.3", 5, time.Minute).
		Return(&ratelimit.Result{Allowed: false, Limit: 5, ResetAt: time.Now().Add(20 * time.Second), RetryAfter: 19500 * time.Millisecond}, nil)

	rr := s.request()

	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.Equal("20", rr.Header().Get("Retry-After"))
	s.Equal("0", rr.Header().Get("X-RateLimit-Remaining"))
	s.Contains(rr.Body.String(), `"error":"rate_limited"`)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("login", "limited")))
}

func (s *MiddlewareSuite) TestStoreFailureLetsRequestThrough() {
	s.store.EXPECT().Allow(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))

	rr := s.request()

	s.Equal(http.StatusNoContent, rr.Code)
	s.Empty(rr.Header().Get("X-RateLimit-Limit"))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Decisions.WithLabelValues("login", "error")))
}

func (s *MiddlewareSuite) TestZeroPolicyDisablesCheck() {
	h := s.limiter.Middleware("login", ratelimit.Policy{})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/token", nil))
	s.Equal(http.StatusNoContent, rr.Code)
}

// =============================================================================
// With the in-memory store
// =============================================================================

func TestMiddleware_InMemoryStore(t *testing.T) {
	limiter, err := ratelimit.New(store.NewInMemoryWindows(clock.NewManual(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))))
	if err != nil {
		t.Fatal(err)
	}
	h := limiter.Middleware("login", ratelimit.Policy{Limit: 2, Window: time.Minute})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	codes := make([]int, 0, 4)
	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", nil).WithContext(context.Background())
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusOK}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: expected %d, got %d", i, want[i], codes[i])
		}
	}
}

package httptransport

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualify/internal/jwttoken"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/platform/middleware/request"
	"qualify/pkg/requestcontext"
	"qualify/pkg/testutil"
)

// whoami echoes the identity the auth middleware attached.
type whoami struct{}

func (whoami) Register(r chi.Router) {
	r.Get("/me/whoami", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"user_id": requestcontext.UserID(ctx).String(),
			"role":    string(requestcontext.Role(ctx)),
		})
	})
}

func newTestRouter(tokens *jwttoken.Service) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "# metrics\n")
	})
	return NewRouter(Deps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		TokenValidator: tokens,
		Modules:        []Registrar{whoami{}},
		Metrics:        metrics,
		MetricsToken:   "ops-token",
	})
}

func TestRouter(t *testing.T) {
	tokens := jwttoken.NewService("router-test-key", "qualify", "qualify-api")
	router := newTestRouter(tokens)

	t.Run("healthz is public", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))
	})

	t.Run("metrics require the ops token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized), "")

		req := testutil.NewJSONRequest(t, http.MethodGet, "/metrics", nil)
		req.Header.Set("X-Admin-Token", "ops-token")
		rr = testutil.DoRequest(router, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("module routes need a bearer token", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/me/whoami", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized), "")
	})

	t.Run("valid token reaches the module with its identity", func(t *testing.T) {
		userID := id.NewUserID()
		token, err := tokens.Issue(userID, id.RoleTrainee, time.Hour)
		require.NoError(t, err)

		req := testutil.NewJSONRequest(t, http.MethodGet, "/me/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(router, req)

		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, userID.String(), (*body)["user_id"])
		assert.Equal(t, "trainee", (*body)["role"])
	})

	t.Run("inbound request id is echoed", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil)
		req.Header.Set(request.HeaderRequestID, "req-123")
		rr := testutil.DoRequest(router, req)
		assert.Equal(t, "req-123", rr.Header().Get(request.HeaderRequestID))
	})
}

func TestRouter_LoginLimitWrapsOnlyTheTokenRoute(t *testing.T) {
	limited := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
		})
	}
	router := NewRouter(Deps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		TokenValidator: jwttoken.NewService("router-test-key", "qualify", "qualify-api"),
		Token:          NewTokenHandler(nil, nil, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil))),
		LoginLimit:     limited,
	})

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/token", map[string]string{"email": "a@b.example", "password": "x"}))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, string(dErrors.CodeRateLimited), "")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

package httptransport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"qualify/internal/transport/http/mocks"
	"qualify/internal/users"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/testutil"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/auth_mocks.go -package=mocks AuthService,TokenIssuer
type TokenHandlerSuite struct {
	suite.Suite
	auth   *mocks.MockAuthService
	issuer *mocks.MockTokenIssuer
	router http.Handler
}

func TestTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenHandlerSuite))
}

func (s *TokenHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.auth = mocks.NewMockAuthService(ctrl)
	s.issuer = mocks.NewMockTokenIssuer(ctrl)
	r := chi.NewRouter()
	NewTokenHandler(s.auth, s.issuer, 8*time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	s.router = r
}

// =============================================================================
// POST /auth/token
// =============================================================================

func (s *TokenHandlerSuite) TestToken() {
	user := &users.User{ID: id.NewUserID(), Email: "qa@plant.example", Role: id.RoleQA, Active: true}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.Run("valid credentials yield a bearer token", func() {
		s.auth.EXPECT().Authenticate(gomock.Any(), "qa@plant.example", "correct horse").Return(user, nil)
		s.issuer.EXPECT().Issue(user.ID, id.RoleQA, 8*time.Hour).Return("signed.jwt.token", nil)

		req := testutil.AtTime(testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token", map[string]any{
			"email":    " qa@plant.example ",
			"password": "correct horse",
		}), now)
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[TokenResponse](s.T(), rr)
		s.Equal("signed.jwt.token", body.AccessToken)
		s.Equal("Bearer", body.TokenType)
		s.Equal(user.ID, body.UserID)
		s.True(now.Add(8 * time.Hour).Equal(body.ExpiresAt))
	})

	s.Run("bad credentials are unauthorized", func() {
		s.auth.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token", map[string]any{
			"email":    "qa@plant.example",
			"password": "wrong",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized), "")
	})

	s.Run("missing password never reaches the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token", map[string]any{
			"email": "qa@plant.example",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation), "")
	})

	s.Run("signing failure is internal", func() {
		s.auth.EXPECT().Authenticate(gomock.Any(), gomock.Any(), gomock.Any()).Return(user, nil)
		s.issuer.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any()).Return("", errors.New("boom"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/token", map[string]any{
			"email":    "qa@plant.example",
			"password": "correct horse",
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal), "")
	})
}

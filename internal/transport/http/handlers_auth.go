package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"qualify/internal/users"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
	"qualify/pkg/platform/httputil"
	"qualify/pkg/requestcontext"
)

// AuthService checks login credentials.
type AuthService interface {
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID id.UserID, role id.Role, ttl time.Duration) (string, error)
}

// TokenHandler exchanges email and password for a bearer token.
type TokenHandler struct {
	auth   AuthService
	issuer TokenIssuer
	ttl    time.Duration
	logger *slog.Logger
}

func NewTokenHandler(auth AuthService, issuer TokenIssuer, ttl time.Duration, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{auth: auth, issuer: issuer, ttl: ttl, logger: logger}
}

func (h *TokenHandler) Register(r chi.Router) {
	r.Post("/auth/token", h.handleToken)
}

type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req *TokenRequest) Validate() error {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      id.UserID `json:"user_id"`
	Role        id.Role   `json:"role"`
}

func (h *TokenHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to authenticate",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Role, h.ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue token",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", user.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}

	h.logger.InfoContext(ctx, "token issued",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID.String(),
		"role", user.Role,
	)
	httputil.WriteJSON(w, http.StatusOK, &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   requestcontext.Now(ctx).Add(h.ttl),
		UserID:      user.ID,
		Role:        user.Role,
	})
}

package testutil

import (
	"net/http"
	"time"

	id "qualify/pkg/domain"
	"qualify/pkg/requestcontext"
)

// AsUser attaches an authenticated identity to the request, as the auth
// middleware would.
func AsUser(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithIdentity(req.Context(), userID, role))
}

// AsTrainee is AsUser with the trainee role.
func AsTrainee(req *http.Request, userID id.UserID) *http.Request {
	return AsUser(req, userID, id.RoleTrainee)
}

// AsAdmin is AsUser with the admin role.
func AsAdmin(req *http.Request, userID id.UserID) *http.Request {
	return AsUser(req, userID, id.RoleAdmin)
}

// AtTime pins the request-scoped clock.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

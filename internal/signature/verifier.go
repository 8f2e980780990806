package signature

import (
	"context"

	"qualify/internal/users"
	id "qualify/pkg/domain"
	dErrors "qualify/pkg/domain-errors"
)

// HashLookup returns a user's stored password hash.
type HashLookup interface {
	PasswordHash(ctx context.Context, userID id.UserID) (string, error)
}

// PasswordVerifier checks passwords against stored bcrypt hashes.
type PasswordVerifier struct {
	hashes HashLookup
}

func NewPasswordVerifier(hashes HashLookup) *PasswordVerifier {
	return &PasswordVerifier{hashes: hashes}
}

// Verify treats unknown and inactive users as a failed check.
func (v *PasswordVerifier) Verify(ctx context.Context, userID id.UserID, password string) (bool, error) {
	hash, err := v.hashes.PasswordHash(ctx, userID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) || dErrors.HasCode(err, dErrors.CodeForbidden) {
			return false, nil
		}
		return false, err
	}
	return users.VerifyPassword(password, hash)
}

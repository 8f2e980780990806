package domain

import dErrors "qualify/pkg/domain-errors"

// Role is the acting user's authorization level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleQA      Role = "qa"
	RoleTrainee Role = "trainee"
)

// ParseRole validates a role claim.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleQA, RoleTrainee:
		return r, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role: "+s)
	}
}

// IsPrivileged reports whether the role may see answer keys and manage
// other users' records.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleQA
}

func (r Role) String() string { return string(r) }

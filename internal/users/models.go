package users

import (
	"time"

	id "qualify/pkg/domain"
)

// User is a person who can be assigned training or administer it.
type User struct {
	ID           id.UserID
	Email        string
	DisplayName  string
	Role         id.Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// CreateRequest describes a new user.
type CreateRequest struct {
	Email       string
	DisplayName string
	Role        id.Role
	Password    string
}

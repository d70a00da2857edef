package domain

import "time"

// Role is the authorisation tier carried by a user and its session token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// User models a seeded account. Records are immutable once the process starts.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// SessionClaims is the identity decoded from a verified session token.
// It is never stored server-side.
type SessionClaims struct {
	UserID    int
	Username  string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasPermission reports whether the claimed role grants perm.
func (c SessionClaims) HasPermission(perm Permission) bool {
	return HasPermission(c.Role, perm)
}

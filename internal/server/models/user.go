package models

import "time"

// Principal is the authenticated identity attached to a request. It is loaded
// from storage on every request and never cached.
type Principal struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

// IsAdmin reports whether the principal bypasses role and ownership checks.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User is the stored account row used by register and login.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// Principal projects the account onto the request identity.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role, Active: u.Active}
}

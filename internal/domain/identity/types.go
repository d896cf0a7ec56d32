// Package identity provides the user and credential types shared by the
// session manager, the domain services, and the CLI.
package identity

import "time"

// Role is the closed set of roles the backend assigns to accounts.
type Role string

const (
	// RoleAdmin can manage users and all projects.
	RoleAdmin Role = "admin"
	// RoleUser is a regular project member.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

// User is the profile record returned by the auth endpoints and cached in
// the credential store between runs.
type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Verified  bool      `json:"isVerified,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// EntityID implements ref.Entity.
func (u User) EntityID() string { return u.ID }

// TokenPair is the access/refresh credential pair issued on sign-in and
// rotated on every successful refresh exchange.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

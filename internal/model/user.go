package model

import (
	"strings"
	"time"
)

// Role is a named permission level attached to a user.
type Role string

const (
	RoleGeneral Role = "general"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleGeneral, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes raw input into a Role. Unknown names are returned
// as-is with Valid() == false so callers can reject them.
func ParseRole(raw string) Role {
	return Role(strings.ToLower(strings.TrimSpace(raw)))
}

// RoleSet is the set of roles a principal holds. It is the single role
// representation shared by the token issuer, verifier and guard.
type RoleSet []Role

func NewRoleSet(roles ...Role) RoleSet {
	out := make(RoleSet, 0, len(roles))
	for _, role := range roles {
		if !role.Valid() || out.Has(role) {
			continue
		}
		out = append(out, role)
	}
	return out
}

func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// User is the credential record stored in the database. PasswordHash is
// never serialized.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	AvatarPath   string    `json:"-"`
	Roles        RoleSet   `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the outward-facing projection of a user.
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	HasAvatar bool      `json:"has_avatar"`
	Roles     RoleSet   `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		HasAvatar: u.AvatarPath != "",
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
	}
}

func (u User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// Claims is the principal snapshot carried inside a session token. It is
// frozen at issuance time and never updated from the database while the
// token lives.
type Claims struct {
	UserID  int64   `json:"sub"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Roles   RoleSet `json:"roles"`
	TokenID string  `json:"jti"`
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Roles.Has(RoleAdmin)
}

// AuthResult is the login/register response body: the signed token plus
// the user it represents.
type AuthResult struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

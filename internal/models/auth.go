package models

import "github.com/golang-jwt/jwt/v5"

// ClientRole distinguishes read-only clients from clients allowed to write.
type ClientRole string

const (
	RoleReader ClientRole = "reader"
	RoleEditor ClientRole = "editor"
)

// Valid returns true when the role is known.
func (r ClientRole) Valid() bool {
	return r == RoleReader || r == RoleEditor
}

// CanWrite reports whether the role may mutate the roster or attendance.
func (r ClientRole) CanWrite() bool {
	return r == RoleEditor
}

// TokenClaims are the JWT claims carried by API tokens.
type TokenClaims struct {
	Role ClientRole `json:"role"`
	jwt.RegisteredClaims
}

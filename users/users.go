package users

import (
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-inventory-admin/internal/utils"
)

// RoleType is a capability granted to a user through the access token scope
type RoleType string

const (
	RoleAdmin RoleType = "ROLE_ADMIN" // Can view revenue statistics
	RoleUser  RoleType = "ROLE_USER"  // Regular back-office user
)

// Claim names carried by the backend's access tokens
const (
	ClaimUserID   = "uid"
	ClaimUsername = "sub"
	ClaimScope    = "scope"
)

// User is the identity record derived from the access token at login and
// persisted under the "user" key.
type User struct {
	ID       string `json:"id"`       // Unique identifier (uid claim)
	Username string `json:"username"` // Login name (sub claim)
	Roles    string `json:"roles"`    // Granted roles (scope claim), space or comma separated
}

// FromClaims projects decoded token claims into a User. It returns nil when claims is nil.
func FromClaims(claims jwtlib.MapClaims) *User {
	if claims == nil {
		return nil
	}
	return &User{
		ID:       utils.ToString(claims[ClaimUserID]),
		Username: utils.ToString(claims[ClaimUsername]),
		Roles:    utils.ToString(claims[ClaimScope]),
	}
}

// RoleList returns the individual roles held by the user.
func (u *User) RoleList() []RoleType {
	if u == nil {
		return nil
	}
	fields := strings.FieldsFunc(u.Roles, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	roles := make([]RoleType, 0, len(fields))
	for _, f := range fields {
		roles = append(roles, RoleType(f))
	}
	return roles
}

// HasRole checks if the user has been granted role
func (u *User) HasRole(role RoleType) bool {
	for _, r := range u.RoleList() {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin returns true if the user holds the admin capability
func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

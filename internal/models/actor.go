package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the portal role carried in access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAgentAdmin UserRole = "AGENT_ADMIN"
	RoleAgent      UserRole = "AGENT"
)

// PortalRoles lists every role allowed on the agent portal.
var PortalRoles = []UserRole{RoleAgent, RoleAgentAdmin, RoleSuperAdmin}

// Valid reports whether the role is one of the portal roles.
func (r UserRole) Valid() bool {
	for _, role := range PortalRoles {
		if r == role {
			return true
		}
	}
	return false
}

// JWTClaims is the access token payload issued by the identity provider. UserID is the
// actor recorded on audit entries, terminations and bookings.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

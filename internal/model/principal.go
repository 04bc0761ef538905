package model

import "github.com/google/uuid"

// Role is the coarse authorisation level carried by an authenticated caller.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Principal is the authenticated caller every core operation receives.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

// SystemPrincipal acts on behalf of background jobs.
var SystemPrincipal = Principal{UserID: uuid.Nil, Role: RoleAdmin}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess reports whether the caller may read or act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || (p.UserID != uuid.Nil && p.UserID == ownerID)
}

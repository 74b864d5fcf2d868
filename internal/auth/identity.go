package auth

import (
	"context"
	"strings"
)

// Role is the verified role claim supplied by the identity provider.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleDoctor        Role = "DOCTOR"
	RoleNurse         Role = "NURSE"
	RoleLabTechnician Role = "LAB_TECHNICIAN"
	RolePatient       Role = "PATIENT"
	RoleCashier       Role = "CASHIER"

	// RoleSystem identifies scheduled callers such as the missed-consultation sweep.
	RoleSystem Role = "SYSTEM"
)

var knownRoles = map[Role]bool{
	RoleAdmin:         true,
	RoleDoctor:        true,
	RoleNurse:         true,
	RoleLabTechnician: true,
	RolePatient:       true,
	RoleCashier:       true,
	RoleSystem:        true,
}

// ParseRole normalizes provider casing ("doctor" -> DOCTOR).
func ParseRole(raw string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return r, knownRoles[r]
}

// Identity is the {userId, role} pair every core operation is invoked with.
type Identity struct {
	UserID string
	Role   Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

// System is the actor used by time-triggered jobs.
var System = Identity{UserID: "system", Role: RoleSystem}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

package principal

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Role identifies what an authenticated user may do.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleClerk    Role = "clerk"
	RoleDelivery Role = "delivery"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleClerk, RoleDelivery, RoleManager:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to an agency employee.
func (r Role) IsStaff() bool {
	return r == RoleClerk || r == RoleDelivery || r == RoleManager
}

func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Principal is the authenticated caller. CustomerID is set for customers,
// EmployeeID for staff.
type Principal struct {
	UserID     snowflake.ID
	Role       Role
	CustomerID snowflake.ID
	EmployeeID snowflake.ID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the caller, if one was attached.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, false
	}
	return p, true
}

package domain

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

type CtxKey string

const (
	KeyPrincipal CtxKey = "Principal"
	KeyRequestID CtxKey = "RequestID"
)

type Role string

const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleRecruiter   Role = "recruiter"
	RoleInterviewer Role = "interviewer"
	RoleSuperAdmin  Role = "super_admin"
)

// CompanyRoles are the roles a company member can hold.
var CompanyRoles = []Role{RoleOwner, RoleAdmin, RoleRecruiter, RoleInterviewer}

func (r Role) IsCompanyRole() bool {
	return slices.Contains(CompanyRoles, r)
}

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID // uuid.Nil for super admins
	Email     string
	Role      Role
}

func (p *Principal) HasRole(roles ...Role) bool {
	return p != nil && slices.Contains(roles, p.Role)
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, KeyPrincipal, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(KeyPrincipal).(*Principal)
	return p, ok && p != nil
}

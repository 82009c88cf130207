package rbac

import (
	"context"
	"errors"

	"warehouse/internal/domain"
)

var errNoAuthContext = errors.New("auth context missing")

type roleEquality struct {
	role domain.Role
}

// RequireAdmin admits only callers whose role is exactly admin.
func RequireAdmin() domain.Gate {
	return roleEquality{role: domain.RoleAdmin}
}

func (g roleEquality) Name() string {
	return "require_" + string(g.role)
}

func (g roleEquality) Check(_ context.Context, auth *domain.AuthContext, _ domain.Target) error {
	if auth == nil {
		return domain.NewAuthError(domain.FailureAuthenticationRequired, errNoAuthContext)
	}
	if auth.Role != g.role {
		return domain.NewAuthError(domain.FailureInsufficientRole, errors.New("role "+string(auth.Role)+" is not "+string(g.role)))
	}
	return nil
}

type roleMembership struct {
	name  string
	roles []domain.Role
}

// RequireCustomer admits customers and admins.
func RequireCustomer() domain.Gate {
	return roleMembership{name: "require_customer", roles: []domain.Role{domain.RoleCustomer, domain.RoleAdmin}}
}

func (g roleMembership) Name() string {
	return g.name
}

func (g roleMembership) Check(_ context.Context, auth *domain.AuthContext, _ domain.Target) error {
	if auth == nil {
		return domain.NewAuthError(domain.FailureAuthenticationRequired, errNoAuthContext)
	}
	if hasRole(auth.Role, g.roles) {
		return nil
	}
	return domain.NewAuthError(domain.FailureInsufficientRole, errors.New("role "+string(auth.Role)+" not permitted"))
}

type ownerOrAdmin struct{}

// OwnerOrAdmin admits admins, and anyone whose subject id equals the
// target's owner id.
func OwnerOrAdmin() domain.Gate {
	return ownerOrAdmin{}
}

func (ownerOrAdmin) Name() string {
	return "owner_or_admin"
}

func (ownerOrAdmin) Check(_ context.Context, auth *domain.AuthContext, target domain.Target) error {
	if auth == nil {
		return domain.NewAuthError(domain.FailureAuthenticationRequired, errNoAuthContext)
	}
	if auth.Role == domain.RoleAdmin {
		return nil
	}
	if target.OwnerID != "" && auth.SubjectID == target.OwnerID {
		return nil
	}
	return domain.NewAuthError(domain.FailureAccessDenied, errors.New("subject does not own resource"))
}

func hasRole(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

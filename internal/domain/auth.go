package domain

import (
	"context"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCustomer
}

// IdentityClaim is what a verified bearer token asserts about its holder.
type IdentityClaim struct {
	SubjectID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Account struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	IsActive  bool
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthContext lives for exactly one request and is never shared across requests.
type AuthContext struct {
	SubjectID string
	Email     string
	Name      string
	Role      Role
	IsActive  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func NewAuthContext(claim IdentityClaim, account Account) AuthContext {
	email := account.Email
	if email == "" {
		email = claim.Email
	}
	return AuthContext{
		SubjectID: claim.SubjectID,
		Email:     email,
		Name:      account.Name,
		Role:      account.Role,
		IsActive:  account.IsActive,
		IssuedAt:  claim.IssuedAt,
		ExpiresAt: claim.ExpiresAt,
	}
}

func (a AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Target identifies the owner of the resource a request addresses.
type Target struct {
	OwnerID string
	Route   string
}

type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (IdentityClaim, error)
}

type AccountStore interface {
	GetAccount(ctx context.Context, id string) (Account, error)
}

type Gate interface {
	Name() string
	Check(ctx context.Context, auth *AuthContext, target Target) error
}

// RevocationList records the instant before which a subject's tokens are void.
type RevocationList interface {
	Revoke(ctx context.Context, subjectID string, at time.Time) error
	RevokedAt(ctx context.Context, subjectID string) (time.Time, bool, error)
}

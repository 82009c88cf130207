package domain

import (
	"errors"
	"fmt"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("unavailable")

	// Verifier outcomes. Anything a verifier returns that does not wrap
	// ErrTokenExpired or ErrTokenRevoked is treated as an invalid token.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
)

// AuthFailure names why a request was refused by the authorization pipeline.
type AuthFailure string

const (
	FailureMissingCredential      AuthFailure = "missing_credential"
	FailureTokenExpired           AuthFailure = "token_expired"
	FailureTokenRevoked           AuthFailure = "token_revoked"
	FailureTokenInvalid           AuthFailure = "token_invalid"
	FailureAccountNotFound        AuthFailure = "account_not_found"
	FailureAccountInactive        AuthFailure = "account_inactive"
	FailureInsufficientRole       AuthFailure = "insufficient_role"
	FailureAccessDenied           AuthFailure = "access_denied"
	FailureAuthenticationRequired AuthFailure = "authentication_required"
	FailureLookupFailed           AuthFailure = "lookup_failed"
)

const (
	StageExtract = "extract"
	StageVerify  = "verify"
	StageLoad    = "load"
	StageGate    = "gate"
)

type AuthError struct {
	Kind  AuthFailure
	Stage string
	Gate  string
	Err   error
}

func NewAuthError(kind AuthFailure, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ServerFault reports whether the failure reflects a misconfigured route
// rather than anything the caller did.
func (e *AuthError) ServerFault() bool {
	return e != nil && e.Kind == FailureAuthenticationRequired
}

func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

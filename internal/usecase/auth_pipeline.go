package usecase

import (
	"context"
	"errors"
	"strings"

	"warehouse/internal/domain"
)

// Policy is the ordered list of gates a route requires. All gates must admit.
type Policy struct {
	Name  string
	Gates []domain.Gate
}

// TargetResolver produces the ownership reference for a request. It is only
// invoked after the caller has been authenticated.
type TargetResolver func(ctx context.Context) (domain.Target, error)

type AuthPipeline struct {
	Verifier domain.TokenVerifier
	Accounts domain.AccountStore
}

func NewAuthPipeline(verifier domain.TokenVerifier, accounts domain.AccountStore) *AuthPipeline {
	return &AuthPipeline{Verifier: verifier, Accounts: accounts}
}

// ExtractBearer returns the credential carried in an Authorization header
// value of the form "Bearer <token>".
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", stageError(domain.StageExtract, domain.FailureMissingCredential, errors.New("authorization header missing"))
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", stageError(domain.StageExtract, domain.FailureMissingCredential, errors.New("authorization header malformed"))
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", stageError(domain.StageExtract, domain.FailureMissingCredential, errors.New("bearer token empty"))
	}
	return token, nil
}

// Identify runs extraction and verification only. Callers that have no
// account yet, such as registration, stop here.
func (p *AuthPipeline) Identify(ctx context.Context, header string) (domain.IdentityClaim, error) {
	token, err := ExtractBearer(header)
	if err != nil {
		return domain.IdentityClaim{}, err
	}
	if p == nil || p.Verifier == nil {
		return domain.IdentityClaim{}, stageError(domain.StageVerify, domain.FailureTokenInvalid, errors.New("verifier not configured"))
	}
	claim, err := p.Verifier.Verify(ctx, token)
	if err != nil {
		return domain.IdentityClaim{}, stageError(domain.StageVerify, verifierFailure(err), err)
	}
	if claim.SubjectID == "" {
		return domain.IdentityClaim{}, stageError(domain.StageVerify, domain.FailureTokenInvalid, errors.New("token has no subject"))
	}
	return claim, nil
}

// Authenticate runs extraction, verification and account loading.
func (p *AuthPipeline) Authenticate(ctx context.Context, header string) (domain.AuthContext, error) {
	claim, err := p.Identify(ctx, header)
	if err != nil {
		return domain.AuthContext{}, err
	}
	if p.Accounts == nil {
		return domain.AuthContext{}, stageError(domain.StageLoad, domain.FailureLookupFailed, errors.New("account store not configured"))
	}
	account, err := p.Accounts.GetAccount(ctx, claim.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AuthContext{}, stageError(domain.StageLoad, domain.FailureAccountNotFound, err)
		}
		return domain.AuthContext{}, stageError(domain.StageLoad, domain.FailureLookupFailed, err)
	}
	if !account.IsActive {
		return domain.AuthContext{}, stageError(domain.StageLoad, domain.FailureAccountInactive, errors.New("account inactive"))
	}
	return domain.NewAuthContext(claim, account), nil
}

// Authorize evaluates every gate of policy in order and stops at the first
// refusal. A nil auth is a wiring fault and is reported as
// FailureAuthenticationRequired.
func (p *AuthPipeline) Authorize(ctx context.Context, auth *domain.AuthContext, policy Policy, target domain.Target) error {
	for _, gate := range policy.Gates {
		if gate == nil {
			continue
		}
		if auth == nil {
			err := stageError(domain.StageGate, domain.FailureAuthenticationRequired, errors.New("auth context missing"))
			err.Gate = gate.Name()
			return err
		}
		if err := gate.Check(ctx, auth, target); err != nil {
			authErr, ok := domain.IsAuthError(err)
			if !ok {
				authErr = domain.NewAuthError(domain.FailureAccessDenied, err)
			}
			authErr.Stage = domain.StageGate
			if authErr.Gate == "" {
				authErr.Gate = gate.Name()
			}
			return authErr
		}
	}
	return nil
}

// Admit runs the whole pipeline for one request. resolve may be nil when
// none of the policy's gates look at ownership.
func (p *AuthPipeline) Admit(ctx context.Context, header string, policy Policy, resolve TargetResolver) (domain.AuthContext, error) {
	auth, err := p.Authenticate(ctx, header)
	if err != nil {
		return domain.AuthContext{}, err
	}
	var target domain.Target
	if resolve != nil && len(policy.Gates) > 0 {
		target, err = resolve(ctx)
		if err != nil {
			return domain.AuthContext{}, stageError(domain.StageGate, domain.FailureLookupFailed, err)
		}
	}
	if target.Route == "" {
		target.Route = policy.Name
	}
	if err := p.Authorize(ctx, &auth, policy, target); err != nil {
		return domain.AuthContext{}, err
	}
	return auth, nil
}

func verifierFailure(err error) domain.AuthFailure {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return domain.FailureTokenExpired
	case errors.Is(err, domain.ErrTokenRevoked):
		return domain.FailureTokenRevoked
	default:
		return domain.FailureTokenInvalid
	}
}

func stageError(stage string, kind domain.AuthFailure, err error) *domain.AuthError {
	return &domain.AuthError{Kind: kind, Stage: stage, Err: err}
}

package policyopa

import (
	"context"
	"errors"
	"fmt"

	"warehouse/internal/domain"

	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.warehouse.authz.allow"

// Gate admits a request only when the loaded rego policy evaluates
// data.warehouse.authz.allow to true for it.
type Gate struct {
	query rego.PreparedEvalQuery
}

// NewGateFromPath loads every .rego file under path.
func NewGateFromPath(ctx context.Context, path string) (*Gate, error) {
	if path == "" {
		return nil, errors.New("policy path is required")
	}
	return newGate(ctx, rego.Load([]string{path}, nil))
}

func NewGateFromModule(ctx context.Context, filename, source string) (*Gate, error) {
	return newGate(ctx, rego.Module(filename, source))
}

func newGate(ctx context.Context, source func(*rego.Rego)) (*Gate, error) {
	r := rego.New(
		rego.Query(defaultQuery),
		rego.Capabilities(restrictedCapabilities()),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare authz policy: %w", err)
	}
	return &Gate{query: prepared}, nil
}

func (g *Gate) Name() string {
	return "policy"
}

func (g *Gate) Check(ctx context.Context, auth *domain.AuthContext, target domain.Target) error {
	if auth == nil {
		return domain.NewAuthError(domain.FailureAuthenticationRequired, errors.New("auth context missing"))
	}
	input := map[string]any{
		"subject":  auth.SubjectID,
		"email":    auth.Email,
		"role":     string(auth.Role),
		"owner_id": target.OwnerID,
		"route":    target.Route,
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.NewAuthError(domain.FailureLookupFailed, fmt.Errorf("evaluate policy: %w", err))
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.NewAuthError(domain.FailureAccessDenied, errors.New("policy produced no decision"))
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok || !allowed {
		return domain.NewAuthError(domain.FailureAccessDenied, errors.New("policy denied"))
	}
	return nil
}

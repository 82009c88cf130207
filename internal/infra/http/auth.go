package http

import (
	"context"
	"errors"
	"net/http"

	"warehouse/internal/domain"
	"warehouse/internal/infra/auth/rbac"
	"warehouse/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const authContextKey = "auth_context"

var errAuthNotConfigured = errors.New("auth pipeline not configured")

// targetFunc builds the lazy ownership resolver for one request.
type targetFunc func(c *gin.Context) usecase.TargetResolver

func customerGate() domain.Gate { return rbac.RequireCustomer() }
func ownerGate() domain.Gate    { return rbac.OwnerOrAdmin() }

// policy names the gate chain for a route. The configured policy gate, when
// present, runs last on every route that has gates.
func (s *Server) policy(name string, gates ...domain.Gate) usecase.Policy {
	if s.policyGate != nil && len(gates) > 0 {
		gates = append(gates, s.policyGate)
	}
	return usecase.Policy{Name: name, Gates: gates}
}

// adminOnly returns the admin rate limit followed by the admin role guard.
func (s *Server) adminOnly(name string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		s.rateLimit(s.adminRate()),
		s.guard(s.policy(name, rbac.RequireAdmin()), nil),
	}
}

// guard runs the authorization pipeline for the route and stores the merged
// auth context on success.
func (s *Server) guard(policy usecase.Policy, target targetFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authInitErr != nil || s.pipeline == nil {
			writeErrorCode(c, http.StatusInternalServerError, "AUTH_CONFIG_ERROR", "auth configuration error")
			return
		}
		var resolve usecase.TargetResolver
		if target != nil {
			resolve = target(c)
		}
		auth, err := s.pipeline.Admit(c.Request.Context(), c.GetHeader("Authorization"), policy, resolve)
		if err != nil {
			s.deny(c, policy.Name, err)
			return
		}
		s.metrics.AuthAdmitted(policy.Name)
		c.Set(authContextKey, auth)
		c.Next()
	}
}

func pathOwner(param string) targetFunc {
	return func(c *gin.Context) usecase.TargetResolver {
		id := c.Param(param)
		return func(context.Context) (domain.Target, error) {
			return domain.Target{OwnerID: id}, nil
		}
	}
}

func (s *Server) orderOwner(c *gin.Context) usecase.TargetResolver {
	id := c.Param("id")
	return func(ctx context.Context) (domain.Target, error) {
		owner, err := s.orders.OwnerOf(ctx, id)
		if err != nil {
			return domain.Target{}, err
		}
		return domain.Target{OwnerID: owner}, nil
	}
}

func (s *Server) deny(c *gin.Context, policy string, err error) {
	authErr, ok := domain.IsAuthError(err)
	if !ok {
		authErr = domain.NewAuthError(domain.FailureAuthenticationRequired, err)
	}
	fields := []zap.Field{
		zap.String("policy", policy),
		zap.String("stage", authErr.Stage),
		zap.String("reason", string(authErr.Kind)),
		zap.String("client_ip", c.ClientIP()),
	}
	if authErr.Gate != "" {
		fields = append(fields, zap.String("gate", authErr.Gate))
	}
	switch {
	case authErr.ServerFault(), authErr.Kind == domain.FailureLookupFailed:
		s.logger.Error("authorization failed", append(fields, zap.Error(authErr.Err))...)
	default:
		if authErr.Err != nil {
			fields = append(fields, zap.NamedError("cause", authErr.Err))
		}
		s.logger.Info("request denied", fields...)
	}
	s.metrics.AuthDenied(authErr.Stage, string(authErr.Kind))
	s.writeAuthError(c, authErr)
}

func (s *Server) writeAuthError(c *gin.Context, err *domain.AuthError) {
	switch err.Kind {
	case domain.FailureMissingCredential:
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required")
	case domain.FailureTokenExpired:
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "token expired")
	case domain.FailureTokenRevoked:
		writeErrorCode(c, http.StatusUnauthorized, "TOKEN_REVOKED", "token revoked")
	case domain.FailureTokenInvalid:
		writeErrorCode(c, http.StatusUnauthorized, "INVALID_TOKEN", "invalid token")
	case domain.FailureAccountNotFound:
		if s.cfg.DiscloseAccountState {
			writeErrorCode(c, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
			return
		}
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case domain.FailureAccountInactive:
		if s.cfg.DiscloseAccountState {
			writeErrorCode(c, http.StatusForbidden, "ACCOUNT_INACTIVE", "account inactive")
			return
		}
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case domain.FailureInsufficientRole, domain.FailureAccessDenied:
		writeErrorCode(c, http.StatusForbidden, "FORBIDDEN", "access denied")
	case domain.FailureLookupFailed:
		writeErrorCode(c, http.StatusServiceUnavailable, "UNAVAILABLE", "service unavailable")
	default:
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

// authContext returns the context stored by guard. A handler reached without
// one is miswired and answers 500.
func authContext(c *gin.Context) (domain.AuthContext, bool) {
	raw, ok := c.Get(authContextKey)
	if ok {
		if auth, ok := raw.(domain.AuthContext); ok {
			return auth, true
		}
	}
	writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	return domain.AuthContext{}, false
}

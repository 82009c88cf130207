package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	httpTimeout   = 5 * time.Second
	discoveryPath = "/.well-known/openid-configuration"
)

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens issued by the identity provider. RS256 tokens
// are verified against the provider's JWKS; HS256 tokens are accepted only
// when a shared secret is configured.
type Verifier struct {
	issuer      string
	audience    string
	clockSkew   time.Duration
	hmacSecret  []byte
	httpClient  *http.Client
	jwks        *jwksCache
	revocations domain.RevocationList
	now         func() time.Time
}

type Option func(*Verifier)

func WithHTTPClient(client *http.Client) Option {
	return func(v *Verifier) {
		if client != nil {
			v.httpClient = client
		}
	}
}

func WithRevocations(list domain.RevocationList) Option {
	return func(v *Verifier) {
		v.revocations = list
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(cfg config.Config, opts ...Option) (*Verifier, error) {
	v := &Verifier{
		issuer:     strings.TrimSpace(cfg.JWTIssuer),
		audience:   strings.TrimSpace(cfg.JWTAudience),
		clockSkew:  time.Duration(cfg.JWTClockSkewSecs) * time.Second,
		httpClient: &http.Client{Timeout: httpTimeout},
		now:        time.Now,
	}
	if cfg.JWTHMACSecret != "" {
		v.hmacSecret = []byte(cfg.JWTHMACSecret)
	}
	for _, opt := range opts {
		opt(v)
	}
	jwksURL := strings.TrimSpace(cfg.JWTJWKSURL)
	if jwksURL == "" && v.hmacSecret == nil {
		if v.issuer == "" {
			return nil, errors.New("JWT_ISSUER, JWT_JWKS_URL or JWT_HMAC_SECRET is required")
		}
		discovered, err := discoverJWKSURL(context.Background(), v.httpClient, v.issuer)
		if err != nil {
			return nil, fmt.Errorf("oidc discovery: %w", err)
		}
		jwksURL = discovered
	}
	if jwksURL != "" {
		v.jwks = newJWKSCache(jwksURL, v.httpClient)
		v.jwks.now = v.now
	}
	return v, nil
}

// Verify implements domain.TokenVerifier. Expired and revoked tokens wrap
// domain.ErrTokenExpired and domain.ErrTokenRevoked; every other failure,
// including an unreachable revocation list, wraps domain.ErrTokenInvalid.
func (v *Verifier) Verify(ctx context.Context, credential string) (domain.IdentityClaim, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(credential), claims, v.keyFunc(ctx), v.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.IdentityClaim{}, fmt.Errorf("%w: %v", domain.ErrTokenExpired, err)
		}
		return domain.IdentityClaim{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return domain.IdentityClaim{}, fmt.Errorf("%w: sub claim required", domain.ErrTokenInvalid)
	}
	identity := domain.IdentityClaim{
		SubjectID: claims.Subject,
		Email:     claims.Email,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	if err := v.checkRevoked(ctx, identity); err != nil {
		return domain.IdentityClaim{}, err
	}
	return identity, nil
}

func (v *Verifier) checkRevoked(ctx context.Context, identity domain.IdentityClaim) error {
	if v.revocations == nil {
		return nil
	}
	revokedAt, ok, err := v.revocations.RevokedAt(ctx, identity.SubjectID)
	if err != nil {
		return fmt.Errorf("%w: revocation lookup: %v", domain.ErrTokenInvalid, err)
	}
	if !ok {
		return nil
	}
	// iat has second precision.
	if identity.IssuedAt.IsZero() || identity.IssuedAt.Before(revokedAt.Truncate(time.Second)) {
		return domain.ErrTokenRevoked
	}
	return nil
}

func (v *Verifier) parserOptions() []jwt.ParserOption {
	methods := make([]string, 0, 2)
	if v.jwks != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	if v.hmacSecret != nil {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	return opts
}

func (v *Verifier) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if v.hmacSecret == nil {
				return nil, errors.New("hmac tokens not accepted")
			}
			return v.hmacSecret, nil
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, errors.New("rsa tokens not accepted")
			}
			kid, _ := token.Header["kid"].(string)
			return v.jwks.getKey(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
	}
}

// IssueHS256 mints a token the verifier accepts in shared-secret mode. It is
// meant for local development and tests.
func IssueHS256(cfg config.Config, identity domain.IdentityClaim) (string, error) {
	if cfg.JWTHMACSecret == "" {
		return "", errors.New("JWT_HMAC_SECRET is required")
	}
	claims := tokenClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			Issuer:    cfg.JWTIssuer,
			ExpiresAt: jwt.NewNumericDate(identity.ExpiresAt),
		},
	}
	if !identity.IssuedAt.IsZero() {
		claims.IssuedAt = jwt.NewNumericDate(identity.IssuedAt)
	}
	if cfg.JWTAudience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.JWTAudience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTHMACSecret))
}

func discoverJWKSURL(ctx context.Context, client *http.Client, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(issuer, "/")+discoveryPath, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("discovery status %d", resp.StatusCode)
	}
	var payload struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.JWKSURI == "" {
		return "", errors.New("discovery document missing jwks_uri")
	}
	return payload.JWKSURI, nil
}

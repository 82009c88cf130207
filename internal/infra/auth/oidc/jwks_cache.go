package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	jwksTTL          = 5 * time.Minute
	jwksMaxStale     = 15 * time.Minute
	jwksFetchTimeout = 5 * time.Second
	jwksAttempts     = 3
	jwksBackoff      = 200 * time.Millisecond
	jwksBackoffMax   = 2 * time.Second
)

var errKeyNotFound = errors.New("signing key not found in jwks")

type jwksCache struct {
	url        string
	httpClient *http.Client
	now        func() time.Time

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	freshUntil time.Time
	staleUntil time.Time

	group singleflight.Group
}

type jsonWebKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKSCache(url string, client *http.Client) *jwksCache {
	return &jwksCache{
		url:        url,
		httpClient: client,
		now:        time.Now,
		keys:       map[string]*rsa.PublicKey{},
	}
}

// getKey serves fresh keys from memory, serves stale keys while a background
// refresh runs, and blocks on a refresh for unknown kids.
func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errors.New("token header has no kid")
	}
	key, fresh, stale := c.lookup(kid)
	if fresh {
		return key, nil
	}
	if stale {
		go func() {
			_ = c.refresh(context.Background())
		}()
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, fresh, _ := c.lookup(kid); fresh {
		return key, nil
	}
	return nil, errKeyNotFound
}

func (c *jwksCache) lookup(kid string) (*rsa.PublicKey, bool, bool) {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[kid]
	if !ok {
		return nil, false, false
	}
	if now.Before(c.freshUntil) {
		return key, true, false
	}
	if now.Before(c.staleUntil) {
		return key, false, true
	}
	return nil, false, false
}

// refresh coalesces concurrent callers onto one fetch. A caller giving up
// does not cancel the fetch for the others.
func (c *jwksCache) refresh(ctx context.Context) error {
	ch := c.group.DoChan("jwks", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jwksFetchTimeout)
		defer cancel()
		keys, err := c.fetchWithRetry(fetchCtx)
		if err != nil {
			return nil, err
		}
		now := c.now()
		c.mu.Lock()
		c.keys = keys
		c.freshUntil = now.Add(jwksTTL)
		c.staleUntil = c.freshUntil.Add(jwksMaxStale)
		c.mu.Unlock()
		return nil, nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *jwksCache) fetchWithRetry(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	delay := jwksBackoff
	var lastErr error
	for attempt := 0; attempt < jwksAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, jwksBackoffMax)
		}
		keys, err := c.fetch(ctx)
		if err == nil {
			return keys, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *jwksCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}
	var payload struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("jwks decode: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, jwk := range payload.Keys {
		if jwk.Kty != "RSA" || jwk.Kid == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pub, err := rsaPublicKey(jwk)
		if err != nil {
			continue
		}
		keys[jwk.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks has no usable rsa signing keys")
	}
	return keys, nil
}

func rsaPublicKey(jwk jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil || len(n) == 0 {
		return nil, errors.New("invalid rsa modulus")
	}
	e, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil || len(e) == 0 {
		return nil, errors.New("invalid rsa exponent")
	}
	exponent := new(big.Int).SetBytes(e)
	if !exponent.IsInt64() || exponent.Int64() > int64(^uint32(0)) {
		return nil, errors.New("rsa exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exponent.Int64())}, nil
}

package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestJWKSCache_UnknownKidRefreshes(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	first := buildJWKS(t, &privKey.PublicKey, "kid-1")
	second := buildJWKS(t, &privKey.PublicKey, "kid-2")
	var calls int32
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return jsonResponse(http.StatusOK, first), nil
			}
			return jsonResponse(http.StatusOK, second), nil
		}),
	}
	cache := newJWKSCache(testJWKSURL, client)
	if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("get kid-1: %v", err)
	}
	if _, err := cache.getKey(context.Background(), "kid-2"); err != nil {
		t.Fatalf("get kid-2: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

func TestJWKSCache_StaleServedUntilMaxStale(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("idp unreachable")
		}),
	}
	cache := newJWKSCache(testJWKSURL, client)
	var mu sync.Mutex
	now := time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	cache.keys = map[string]*rsa.PublicKey{"kid-1": &privKey.PublicKey}
	cache.freshUntil = now.Add(-time.Minute)
	cache.staleUntil = now.Add(10 * time.Minute)

	if _, err := cache.getKey(context.Background(), "kid-1"); err != nil {
		t.Fatalf("expected stale key: %v", err)
	}
	mu.Lock()
	now = now.Add(20 * time.Minute)
	mu.Unlock()
	if _, err := cache.getKey(context.Background(), "kid-1"); err == nil {
		t.Fatal("expected failure after stale window")
	}
}

func TestJWKSCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := buildJWKS(t, &privKey.PublicKey, "kid-1")
	var calls int32
	release := make(chan struct{})
	client := &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			<-release
			return jsonResponse(http.StatusOK, jwks), nil
		}),
	}
	cache := newJWKSCache(testJWKSURL, client)

	const callers = 8
	var started, done sync.WaitGroup
	errs := make(chan error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer done.Done()
			started.Done()
			_, err := cache.getKey(context.Background(), "kid-1")
			errs <- err
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("get key: %v", err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

package games

import (
	"context"
	"sync"
	"time"
)

// TokenCache holds a provider bearer token until shortly before it expires.
// It is injected into the client so tests and multi-client setups share one
// token instead of hiding it in package state.
type TokenCache struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenCache() *TokenCache {
	return &TokenCache{}
}

// Token returns the cached token, calling fetch when it is missing or about
// to expire. fetch returns the token and its absolute expiry time.
func (tc *TokenCache) Token(ctx context.Context, fetch func(ctx context.Context) (string, time.Time, error)) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	// Refresh a minute early so in-flight requests never carry a dying token.
	if tc.token != "" && time.Now().Before(tc.expiry.Add(-time.Minute)) {
		return tc.token, nil
	}
	token, expiry, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	tc.token = token
	tc.expiry = expiry
	return token, nil
}

// Invalidate drops the cached token, forcing a refresh on next use.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.token = ""
	tc.mu.Unlock()
}

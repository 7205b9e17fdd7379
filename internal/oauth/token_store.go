package oauth

import (
	"sync"
	"time"

	"openapi-mcp/pkg/logging"
)

// tokenExpiryMargin is how long a cached token must still be valid to be reused.
const tokenExpiryMargin = 60 * time.Second

// TokenStore provides thread-safe in-memory storage for access tokens.
// Entries are never evicted; a refetch overwrites the previous entry.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[CacheKey]*Token
}

// NewTokenStore creates an empty store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[CacheKey]*Token)}
}

// Store saves a token under key, replacing any previous one.
func (ts *TokenStore) Store(key CacheKey, token *Token) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.tokens[key] = token
	logging.Debug("OAuth", "Stored token for %s (expires: %v)", key, token.ExpiresAt)
}

// Get returns the token for key if it is still valid for more than the
// expiry margin at now, else nil.
func (ts *TokenStore) Get(key CacheKey, now time.Time) *Token {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	token, exists := ts.tokens[key]
	if !exists {
		return nil
	}
	if !token.validFor(now, tokenExpiryMargin) {
		logging.Debug("OAuth", "Token near expiry for %s", key)
		return nil
	}
	return token
}

// Count returns the number of tokens in the store, expired ones included.
func (ts *TokenStore) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.tokens)
}

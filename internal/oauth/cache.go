package oauth

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"openapi-mcp/internal/api"
	"openapi-mcp/pkg/logging"
)

// defaultExpiresIn is assumed when the token endpoint omits expires_in.
const defaultExpiresIn = 3600

// TokenCache obtains client-credentials tokens and reuses them until they
// are close to expiry. It is safe for concurrent use. Concurrent misses for
// the same key each perform a grant; the last write wins.
type TokenCache struct {
	store      *TokenStore
	httpClient *http.Client
	now        func() time.Time
}

// CacheOption configures a TokenCache.
type CacheOption func(*TokenCache)

// WithHTTPClient sets the client used to call token endpoints.
func WithHTTPClient(c *http.Client) CacheOption {
	return func(tc *TokenCache) {
		tc.httpClient = c
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(tc *TokenCache) {
		tc.now = now
	}
}

// NewTokenCache creates an empty cache.
func NewTokenCache(opts ...CacheOption) *TokenCache {
	tc := &TokenCache{
		store:      NewTokenStore(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Store exposes the underlying token store.
func (tc *TokenCache) Store() *TokenStore {
	return tc.store
}

// GetToken returns a cached access token for req.Key or performs a grant.
// Grant failures are AUTH_ERROR and are never cached.
func (tc *TokenCache) GetToken(ctx context.Context, req TokenRequest) (string, error) {
	if cached := tc.store.Get(req.Key, tc.now()); cached != nil {
		return cached.AccessToken.Reveal(), nil
	}

	style := oauth2.AuthStyleInHeader
	if req.AuthMethod == api.TokenAuthClientSecretPost {
		style = oauth2.AuthStyleInParams
	}

	cfg := clientcredentials.Config{
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret.Reveal(),
		TokenURL:     req.TokenURL,
		Scopes:       req.Scopes,
		AuthStyle:    style,
	}

	grantCtx := context.WithValue(ctx, oauth2.HTTPClient, tc.httpClient)
	start := tc.now()
	tok, err := cfg.Token(grantCtx)
	if err != nil {
		logging.Audit(logging.AuditEvent{
			Action:   "oauth_grant",
			Outcome:  "failure",
			API:      req.Key.APIName,
			Target:   req.TokenURL,
			Schemes:  []string{req.Key.SchemeName},
			Duration: tc.now().Sub(start),
		})
		return "", grantError(req.TokenURL, err)
	}

	expiresIn := expiresInSeconds(tok, start)
	tc.store.Store(req.Key, &Token{
		AccessToken: api.NewSecret(tok.AccessToken),
		ExpiresAt:   tc.now().Add(time.Duration(expiresIn) * time.Second),
	})

	logging.Audit(logging.AuditEvent{
		Action:   "oauth_grant",
		Outcome:  "success",
		API:      req.Key.APIName,
		Target:   req.TokenURL,
		Schemes:  []string{req.Key.SchemeName},
		Duration: tc.now().Sub(start),
	})
	return tok.AccessToken, nil
}

// expiresInSeconds reads the server-reported lifetime, defaulting to one hour,
// and never returns less than one second.
func expiresInSeconds(tok *oauth2.Token, issuedAt time.Time) int64 {
	var seconds int64 = defaultExpiresIn

	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = int64(math.Floor(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			seconds = n
		}
	default:
		if tok.ExpiresIn > 0 {
			seconds = tok.ExpiresIn
		} else if !tok.Expiry.IsZero() {
			seconds = int64(tok.Expiry.Sub(issuedAt).Seconds())
		}
	}
	return max(seconds, 1)
}

func grantError(tokenURL string, err error) *api.Error {
	details := map[string]any{"tokenUrl": tokenURL}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			details["oauthError"] = retrieveErr.ErrorCode
		}
		if retrieveErr.ErrorDescription != "" {
			details["errorDescription"] = retrieveErr.ErrorDescription
		}
		if retrieveErr.Response != nil {
			details["status"] = retrieveErr.Response.StatusCode
		}
		if retrieveErr.ErrorCode == "" && len(retrieveErr.Body) > 0 {
			details["cause"] = string(retrieveErr.Body)
		}
		return api.NewAuthError("OAuth2 token request failed", details).WithCause(err)
	}

	details["cause"] = err.Error()
	return api.NewAuthError("OAuth2 token request failed", details).WithCause(err)
}

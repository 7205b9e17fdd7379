package oauth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"openapi-mcp/internal/api"
)

// CacheKey identifies a cached token by every parameter that went into the grant.
type CacheKey struct {
	APIName    string
	SchemeName string
	ClientID   string
	TokenURL   string
	AuthMethod api.TokenAuthMethod

	// Scopes is the sorted scope list joined with ",".
	Scopes string
}

// NewCacheKey builds a key whose scope part does not depend on scope order.
func NewCacheKey(apiName, schemeName, clientID, tokenURL string, method api.TokenAuthMethod, scopes []string) CacheKey {
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)
	return CacheKey{
		APIName:    apiName,
		SchemeName: schemeName,
		ClientID:   clientID,
		TokenURL:   tokenURL,
		AuthMethod: method,
		Scopes:     strings.Join(sorted, ","),
	}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s/%s client=%s url=%s method=%s scopes=[%s]",
		k.APIName, k.SchemeName, k.ClientID, k.TokenURL, k.AuthMethod, k.Scopes)
}

// TokenRequest is everything needed to obtain one client-credentials token.
type TokenRequest struct {
	Key          CacheKey
	TokenURL     string
	ClientID     string
	ClientSecret api.Secret
	Scopes       []string
	AuthMethod   api.TokenAuthMethod
}

// Token is a cached access token.
type Token struct {
	AccessToken api.Secret
	ExpiresAt   time.Time
}

// validFor reports whether the token stays valid for more than margin after now.
func (t *Token) validFor(now time.Time, margin time.Duration) bool {
	return t.ExpiresAt.Sub(now) > margin
}

// Package oauth obtains and caches OAuth2 client-credentials access tokens.
//
// A TokenCache is created once by the application and injected wherever
// tokens are needed; there is no package-level cache. Tokens are keyed by
// every parameter that influenced the grant (API, scheme, client id, token
// URL, client auth method and the sorted scope list), so two requests that
// differ only in scope order share a token.
//
// A cached token is reused while it remains valid for more than 60 seconds.
// Grants use golang.org/x/oauth2/clientcredentials with either HTTP Basic
// (client_secret_basic) or form-body (client_secret_post) client
// authentication. A failed grant returns an AUTH_ERROR carrying the token URL
// and whatever the endpoint reported; failures are never cached.
//
// Concurrent misses for the same key are not deduplicated.
package oauth

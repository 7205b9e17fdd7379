// Package auth turns an endpoint's OpenAPI security requirements into
// concrete credentials.
//
// Requirements are alternatives (OR); the schemes inside one requirement must
// all resolve (AND). The first requirement that resolves wins. Scheme types
// are dispatched through one handler table:
//
//	apiKey  <API>_<SCHEME>_API_KEY
//	http    bearer: _TOKEN, basic: _USERNAME and _PASSWORD
//	oauth2  clientCredentials via _CLIENT_ID and _CLIENT_SECRET
//
// Missing credentials only rule out a requirement. A failed OAuth grant or a
// malformed env value stops resolution with that error.
package auth

package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"openapi-mcp/internal/api"
)

// Env is a flat snapshot of environment variables. The core only ever reads
// credentials from an Env passed in explicitly.
type Env map[string]string

// FromEnviron captures the process environment. Only the app calls this.
func FromEnviron() Env {
	return Parse(os.Environ())
}

// Parse builds an Env from KEY=VALUE pairs.
func Parse(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Lookup returns the value of key and whether it is set to something non-empty.
func (e Env) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok && v != ""
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// Normalize upper-cases s, collapses every run of non-alphanumerics into one
// underscore and trims leading and trailing underscores.
func Normalize(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToUpper(s), "_"), "_")
}

// APIPrefix is the env prefix of API-level variables.
func APIPrefix(apiName string) string {
	return Normalize(apiName)
}

// SchemePrefix is the env prefix of scheme-level variables.
func SchemePrefix(apiName, schemeName string) string {
	return APIPrefix(apiName) + "_" + Normalize(schemeName)
}

// Scheme-level variable suffixes.
const (
	SuffixAPIKey          = "_API_KEY"
	SuffixToken           = "_TOKEN"
	SuffixUsername        = "_USERNAME"
	SuffixPassword        = "_PASSWORD"
	SuffixClientID        = "_CLIENT_ID"
	SuffixClientSecret    = "_CLIENT_SECRET"
	SuffixTokenURL        = "_TOKEN_URL"
	SuffixScopes          = "_SCOPES"
	SuffixTokenAuthMethod = "_TOKEN_AUTH_METHOD"
)

// API-level variable suffixes.
const (
	SuffixBaseURL = "_BASE_URL"
	SuffixHeaders = "_HEADERS"
)

// VarName returns the full variable name for a scheme-level suffix.
func VarName(apiName, schemeName, suffix string) string {
	return SchemePrefix(apiName, schemeName) + suffix
}

// APIVarName returns the full variable name for an API-level suffix.
func APIVarName(apiName, suffix string) string {
	return APIPrefix(apiName) + suffix
}

// Reader resolves the credentials of one API from an Env.
type Reader struct {
	env     Env
	apiName string
}

// NewReader creates a reader scoped to apiName.
func NewReader(env Env, apiName string) *Reader {
	return &Reader{env: env, apiName: apiName}
}

func (r *Reader) scheme(schemeName, suffix string) (string, bool) {
	return r.env.Lookup(VarName(r.apiName, schemeName, suffix))
}

// APIKey returns <API>_<SCHEME>_API_KEY.
func (r *Reader) APIKey(schemeName string) (string, bool) {
	return r.scheme(schemeName, SuffixAPIKey)
}

// Token returns <API>_<SCHEME>_TOKEN.
func (r *Reader) Token(schemeName string) (string, bool) {
	return r.scheme(schemeName, SuffixToken)
}

// BasicCredentials returns the username and password. ok is false unless both are set.
func (r *Reader) BasicCredentials(schemeName string) (username, password string, ok bool) {
	username, uok := r.scheme(schemeName, SuffixUsername)
	password, pok := r.scheme(schemeName, SuffixPassword)
	return username, password, uok && pok
}

// OAuthClientCredentials holds the env-supplied parts of a client-credentials grant.
type OAuthClientCredentials struct {
	ClientID        string
	ClientSecret    string
	TokenURL        string
	Scopes          []string
	TokenAuthMethod api.TokenAuthMethod
}

// OAuthClientCredentials reads every OAuth variable of a scheme. An invalid
// _TOKEN_AUTH_METHOD is a CONFIG_ERROR.
func (r *Reader) OAuthClientCredentials(schemeName string) (OAuthClientCredentials, error) {
	var creds OAuthClientCredentials
	creds.ClientID, _ = r.scheme(schemeName, SuffixClientID)
	creds.ClientSecret, _ = r.scheme(schemeName, SuffixClientSecret)
	creds.TokenURL, _ = r.scheme(schemeName, SuffixTokenURL)

	if raw, ok := r.scheme(schemeName, SuffixScopes); ok {
		creds.Scopes = strings.Fields(raw)
	}

	if raw, ok := r.scheme(schemeName, SuffixTokenAuthMethod); ok {
		method := api.TokenAuthMethod(raw)
		if !method.Valid() {
			return creds, api.NewConfigError(
				fmt.Sprintf("Invalid %s value", VarName(r.apiName, schemeName, SuffixTokenAuthMethod)),
				map[string]any{"value": raw},
			)
		}
		creds.TokenAuthMethod = method
	}
	return creds, nil
}

// BaseURL returns <API>_BASE_URL.
func (r *Reader) BaseURL() (string, bool) {
	return r.env.Lookup(APIVarName(r.apiName, SuffixBaseURL))
}

// ExtraHeaders parses <API>_HEADERS, a JSON object of string values.
// An unset variable yields an empty map.
func (r *Reader) ExtraHeaders() (map[string]string, error) {
	name := APIVarName(r.apiName, SuffixHeaders)
	raw, ok := r.env.Lookup(name)
	if !ok {
		return map[string]string{}, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, api.NewConfigError(fmt.Sprintf("Invalid JSON in %s", name), map[string]any{"value": raw})
	}

	obj, isObject := parsed.(map[string]any)
	if !isObject {
		return nil, api.NewConfigError(fmt.Sprintf("%s must be a JSON object", name), nil)
	}

	headers := make(map[string]string, len(obj))
	for key, value := range obj {
		s, isString := value.(string)
		if !isString {
			return nil, api.NewConfigError(fmt.Sprintf("%s values must be strings", name), map[string]any{"key": key})
		}
		headers[key] = s
	}
	return headers, nil
}

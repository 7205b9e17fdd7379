package api

import (
	"context"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// HTTPMethods lists the operation slots of a path item, in scan order.
var HTTPMethods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// DefaultTimeoutMs is the request timeout used when neither the call nor the
// API configuration sets one.
const DefaultTimeoutMs = 30000

// TokenAuthMethod selects how OAuth client credentials are sent to the token endpoint.
type TokenAuthMethod string

const (
	TokenAuthClientSecretBasic TokenAuthMethod = "client_secret_basic"
	TokenAuthClientSecretPost  TokenAuthMethod = "client_secret_post"
)

// Valid reports whether m is one of the supported methods.
func (m TokenAuthMethod) Valid() bool {
	return m == TokenAuthClientSecretBasic || m == TokenAuthClientSecretPost
}

// OAuth2Settings holds per-API overrides for client-credentials grants.
type OAuth2Settings struct {
	TokenURLOverride        string          `yaml:"tokenUrlOverride,omitempty" json:"tokenUrlOverride,omitempty"`
	Scopes                  []string        `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	TokenEndpointAuthMethod TokenAuthMethod `yaml:"tokenEndpointAuthMethod,omitempty" json:"tokenEndpointAuthMethod,omitempty"`
}

// APIConfig is the static configuration of one API.
type APIConfig struct {
	Name      string            `yaml:"name" json:"name"`
	SpecPath  string            `yaml:"specPath,omitempty" json:"specPath,omitempty"`
	SpecURL   string            `yaml:"specUrl,omitempty" json:"specUrl,omitempty"`
	BaseURL   string            `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`
	TimeoutMs int               `yaml:"timeoutMs,omitempty" json:"timeoutMs,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	OAuth2    *OAuth2Settings   `yaml:"oauth2,omitempty" json:"oauth2,omitempty"`
	Retry429  *RetryOverride    `yaml:"retry429,omitempty" json:"retry429,omitempty"`
}

// Source returns the spec path or URL the API was loaded from.
func (c APIConfig) Source() string {
	if c.SpecPath != "" {
		return c.SpecPath
	}
	return c.SpecURL
}

// APIDescriptor is one loaded API. It is immutable after load.
type APIDescriptor struct {
	Name            string
	Document        *openapi3.T
	BaseURL         string
	Endpoints       []*EndpointDefinition
	EndpointByID    map[string]*EndpointDefinition
	AuthSchemeNames []string
	Config          APIConfig

	// SecurityOrder lists the scheme names of each top-level security
	// requirement in the order the document declares them.
	SecurityOrder [][]string
}

// Title returns the document's info title, or "".
func (d *APIDescriptor) Title() string {
	if d.Document == nil || d.Document.Info == nil {
		return ""
	}
	return d.Document.Info.Title
}

// Version returns the document's info version, or "".
func (d *APIDescriptor) Version() string {
	if d.Document == nil || d.Document.Info == nil {
		return ""
	}
	return d.Document.Info.Version
}

// EndpointDefinition is one (method, path) operation of an API.
type EndpointDefinition struct {
	EndpointID  string
	Method      string
	Path        string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Operation   *openapi3.Operation
	PathItem    *openapi3.PathItem

	// SecurityOrder is the declared scheme order of each operation-level
	// security requirement.
	SecurityOrder [][]string
}

// Parameters returns the path-item parameters followed by the operation
// parameters. Unresolved references are skipped.
func (e *EndpointDefinition) Parameters() []*openapi3.Parameter {
	var params []*openapi3.Parameter
	collect := func(refs openapi3.Parameters) {
		for _, ref := range refs {
			if ref == nil || ref.Value == nil {
				continue
			}
			params = append(params, ref.Value)
		}
	}
	if e.PathItem != nil {
		collect(e.PathItem.Parameters)
	}
	if e.Operation != nil {
		collect(e.Operation.Parameters)
	}
	return params
}

// AuthKind tags the variant of a ResolvedAuthScheme.
type AuthKind string

const (
	AuthKindAPIKey AuthKind = "apiKey"
	AuthKindHTTP   AuthKind = "http"
	AuthKindOAuth2 AuthKind = "oauth2"
)

// ResolvedAuthScheme is one concrete credential ready to be applied to a request.
// Which fields are set depends on Kind:
//
//	apiKey: In, ParamName, Value
//	http:   HTTPScheme ("bearer" or "basic"), Token or Username+Password
//	oauth2: Token
type ResolvedAuthScheme struct {
	Kind       AuthKind
	SchemeName string

	In        string
	ParamName string
	Value     Secret

	HTTPScheme string
	Token      Secret
	Username   string
	Password   Secret
}

// NewAPIKeyScheme builds an apiKey variant.
func NewAPIKeyScheme(schemeName, in, paramName, value string) ResolvedAuthScheme {
	return ResolvedAuthScheme{Kind: AuthKindAPIKey, SchemeName: schemeName, In: in, ParamName: paramName, Value: NewSecret(value)}
}

// NewBearerScheme builds an http bearer variant.
func NewBearerScheme(schemeName, token string) ResolvedAuthScheme {
	return ResolvedAuthScheme{Kind: AuthKindHTTP, SchemeName: schemeName, HTTPScheme: "bearer", Token: NewSecret(token)}
}

// NewBasicScheme builds an http basic variant.
func NewBasicScheme(schemeName, username, password string) ResolvedAuthScheme {
	return ResolvedAuthScheme{Kind: AuthKindHTTP, SchemeName: schemeName, HTTPScheme: "basic", Username: username, Password: NewSecret(password)}
}

// NewOAuth2Scheme builds an oauth2 variant.
func NewOAuth2Scheme(schemeName, token string) ResolvedAuthScheme {
	return ResolvedAuthScheme{Kind: AuthKindOAuth2, SchemeName: schemeName, Token: NewSecret(token)}
}

// AuthResolution is the winning set of schemes for one call.
type AuthResolution struct {
	Schemes  []ResolvedAuthScheme
	AuthUsed []string
}

// RetryOverride carries optional 429 retry settings from configuration or a call.
// Nil fields fall through to the next level.
type RetryOverride struct {
	MaxRetries        *int     `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	BaseDelayMs       *int     `yaml:"baseDelayMs,omitempty" json:"baseDelayMs,omitempty"`
	MaxDelayMs        *int     `yaml:"maxDelayMs,omitempty" json:"maxDelayMs,omitempty"`
	JitterRatio       *float64 `yaml:"jitterRatio,omitempty" json:"jitterRatio,omitempty"`
	RespectRetryAfter *bool    `yaml:"respectRetryAfter,omitempty" json:"respectRetryAfter,omitempty"`
}

// RetryPolicy is a fully resolved 429 retry policy.
type RetryPolicy struct {
	MaxRetries        int     `json:"maxRetries"`
	BaseDelayMs       int     `json:"baseDelayMs"`
	MaxDelayMs        int     `json:"maxDelayMs"`
	JitterRatio       float64 `json:"jitterRatio"`
	RespectRetryAfter bool    `json:"respectRetryAfter"`
}

// DefaultRetryPolicy is used for every field no override sets.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:        0,
	BaseDelayMs:       250,
	MaxDelayMs:        5000,
	JitterRatio:       0.2,
	RespectRetryAfter: true,
}

// ResolveRetryPolicy picks each field from call, then api, then the default,
// and clamps the result into valid ranges.
func ResolveRetryPolicy(api, call *RetryOverride) RetryPolicy {
	p := DefaultRetryPolicy
	for _, o := range []*RetryOverride{api, call} {
		if o == nil {
			continue
		}
		if o.MaxRetries != nil {
			p.MaxRetries = *o.MaxRetries
		}
		if o.BaseDelayMs != nil {
			p.BaseDelayMs = *o.BaseDelayMs
		}
		if o.MaxDelayMs != nil {
			p.MaxDelayMs = *o.MaxDelayMs
		}
		if o.JitterRatio != nil {
			p.JitterRatio = *o.JitterRatio
		}
		if o.RespectRetryAfter != nil {
			p.RespectRetryAfter = *o.RespectRetryAfter
		}
	}

	p.MaxRetries = max(0, p.MaxRetries)
	p.BaseDelayMs = max(1, p.BaseDelayMs)
	p.MaxDelayMs = max(1, p.MaxDelayMs)
	p.JitterRatio = min(1, max(0, p.JitterRatio))
	return p
}

// BodyType tags the decoded form of a response body.
type BodyType string

const (
	BodyTypeJSON   BodyType = "json"
	BodyTypeText   BodyType = "text"
	BodyTypeBinary BodyType = "binary"
	BodyTypeEmpty  BodyType = "empty"
)

// RequestEcho describes the request that was sent, with secrets redacted.
type RequestEcho struct {
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	HeadersRedacted map[string]string `json:"headersRedacted"`
	EndpointID      string            `json:"endpointId"`
}

// ResponseData is the decoded upstream response.
type ResponseData struct {
	Status     int               `json:"status"`
	Headers    map[string]string `json:"headers"`
	BodyType   BodyType          `json:"bodyType"`
	BodyJSON   any               `json:"bodyJson,omitempty"`
	BodyText   *string           `json:"bodyText,omitempty"`
	BodyBase64 string            `json:"bodyBase64,omitempty"`
}

// RequestExecutionResult is the outcome of one endpoint invocation.
type RequestExecutionResult struct {
	Request  RequestEcho  `json:"request"`
	Response ResponseData `json:"response"`
	TimingMs int64        `json:"timingMs"`
	AuthUsed []string     `json:"authUsed"`
}

// FileDescriptor is one file to upload. Exactly one of Base64, Text or Path
// supplies the content.
type FileDescriptor struct {
	Base64      string  `json:"base64,omitempty"`
	Text        *string `json:"text,omitempty"`
	Path        string  `json:"path,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
	Filename    string  `json:"filename,omitempty"`
}

// CallInput is one endpoint invocation as received from a caller.
type CallInput struct {
	APIName     string
	EndpointID  string
	PathParams  map[string]any
	Query       map[string]any
	Headers     map[string]string
	Cookies     map[string]string
	Body        any
	Files       map[string]FileDescriptor
	ContentType string
	Accept      string
	TimeoutMs   *int
	Retry429    *RetryOverride
}

// Catalog gives read access to the loaded APIs.
type Catalog interface {
	APIs() []*APIDescriptor
	API(name string) (*APIDescriptor, error)
	Endpoint(apiName, endpointID string) (*APIDescriptor, *EndpointDefinition, error)
}

// Executor runs endpoint invocations.
type Executor interface {
	Execute(ctx context.Context, in CallInput) (*RequestExecutionResult, error)
}

// NormalizeName maps a name to its case-insensitive lookup key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

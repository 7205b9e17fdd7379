package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/oauth"
	"openapi-mcp/pkg/logging"
)

// TokenSource issues OAuth client-credentials tokens. *oauth.TokenCache implements it.
type TokenSource interface {
	GetToken(ctx context.Context, req oauth.TokenRequest) (string, error)
}

// Failure explains why one security requirement could not be satisfied.
type Failure struct {
	Requirement []string `json:"requirement"`
	Reason      string   `json:"reason"`
	MissingEnv  []string `json:"missingEnv"`
}

// schemeFailure is a soft failure: it rules out the current requirement only.
type schemeFailure struct {
	reason     string
	missingEnv []string
}

// schemeRequest is the input of one scheme handler.
type schemeRequest struct {
	api        *api.APIDescriptor
	schemeName string
	scheme     *openapi3.SecurityScheme
	scopes     []string
	creds      *credentials.Reader
}

// schemeHandler resolves one scheme type. A returned error aborts the whole
// resolution; a schemeFailure only fails the current requirement.
type schemeHandler func(ctx context.Context, req schemeRequest) (api.ResolvedAuthScheme, *schemeFailure, error)

// Resolver negotiates an endpoint's security requirements against the
// available credentials.
type Resolver struct {
	tokens   TokenSource
	handlers map[string]schemeHandler
}

// NewResolver creates a resolver that obtains OAuth tokens from tokens.
func NewResolver(tokens TokenSource) *Resolver {
	r := &Resolver{tokens: tokens}
	r.handlers = map[string]schemeHandler{
		"apiKey": resolveAPIKey,
		"http":   resolveHTTP,
		"oauth2": r.resolveOAuth2,
	}
	return r
}

// Resolve returns the schemes of the first fully satisfiable requirement.
//
// Requirements come from the operation, else the document, else there are
// none. An empty requirement anywhere in the list means no auth is needed.
// Within a requirement every scheme must resolve. When no requirement
// resolves, the AUTH_ERROR lists one failure per requirement tried.
func (r *Resolver) Resolve(ctx context.Context, desc *api.APIDescriptor, ep *api.EndpointDefinition, env credentials.Env) (*api.AuthResolution, error) {
	requirements, order := requirementsFor(desc, ep)
	if len(requirements) == 0 {
		return &api.AuthResolution{}, nil
	}

	creds := credentials.NewReader(env, desc.Name)
	var failures []Failure

	for i, requirement := range requirements {
		if len(requirement) == 0 {
			return &api.AuthResolution{}, nil
		}

		var hint []string
		if i < len(order) {
			hint = order[i]
		}
		names := orderedSchemeNames(requirement, hint)

		resolved, failure, err := r.resolveRequirement(ctx, desc, requirement, names, creds)
		if err != nil {
			return nil, err
		}
		if failure == nil {
			logging.Debug("Auth", "Resolved %s/%s with %s", desc.Name, ep.EndpointID, strings.Join(names, "+"))
			return &api.AuthResolution{Schemes: resolved, AuthUsed: names}, nil
		}

		logging.Debug("Auth", "Requirement %v for %s/%s failed: %s", names, desc.Name, ep.EndpointID, failure.reason)
		failures = append(failures, Failure{
			Requirement: names,
			Reason:      failure.reason,
			MissingEnv:  failure.missingEnv,
		})
	}

	return nil, api.NewAuthError(fmt.Sprintf("Could not resolve authentication for '%s'", desc.Name), map[string]any{
		"endpointId": ep.EndpointID,
		"failures":   failures,
	})
}

func (r *Resolver) resolveRequirement(ctx context.Context, desc *api.APIDescriptor, requirement openapi3.SecurityRequirement, names []string, creds *credentials.Reader) ([]api.ResolvedAuthScheme, *schemeFailure, error) {
	resolved := make([]api.ResolvedAuthScheme, 0, len(names))
	missing := newStringSet()

	for _, name := range names {
		scheme := lookupScheme(desc, name)
		if scheme == nil {
			return nil, &schemeFailure{
				reason:     fmt.Sprintf("Security scheme '%s' not found or unresolved", name),
				missingEnv: missing.list(),
			}, nil
		}

		handler, ok := r.handlers[scheme.Type]
		if !ok {
			return nil, &schemeFailure{
				reason:     fmt.Sprintf("Unsupported security scheme type '%s' for '%s'", scheme.Type, name),
				missingEnv: missing.list(),
			}, nil
		}

		out, failure, err := handler(ctx, schemeRequest{
			api:        desc,
			schemeName: name,
			scheme:     scheme,
			scopes:     requirement[name],
			creds:      creds,
		})
		if err != nil {
			return nil, nil, err
		}
		if failure != nil {
			missing.add(failure.missingEnv...)
			failure.missingEnv = missing.list()
			return nil, failure, nil
		}
		resolved = append(resolved, out)
	}
	return resolved, nil, nil
}

// requirementsFor picks the operation's security list, falling back to the
// document's, together with the declared scheme order of each requirement.
func requirementsFor(desc *api.APIDescriptor, ep *api.EndpointDefinition) (openapi3.SecurityRequirements, [][]string) {
	if ep.Operation != nil && ep.Operation.Security != nil {
		return *ep.Operation.Security, ep.SecurityOrder
	}
	if desc.Document != nil && desc.Document.Security != nil {
		return desc.Document.Security, desc.SecurityOrder
	}
	return nil, nil
}

// orderedSchemeNames returns the requirement's scheme names in declared order
// when hint matches the requirement, else sorted by name.
func orderedSchemeNames(requirement openapi3.SecurityRequirement, hint []string) []string {
	if len(hint) == len(requirement) {
		matches := true
		for _, name := range hint {
			if _, ok := requirement[name]; !ok {
				matches = false
				break
			}
		}
		if matches {
			return append([]string(nil), hint...)
		}
	}

	names := make([]string, 0, len(requirement))
	for name := range requirement {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupScheme(desc *api.APIDescriptor, name string) *openapi3.SecurityScheme {
	if desc.Document == nil || desc.Document.Components == nil {
		return nil
	}
	ref, ok := desc.Document.Components.SecuritySchemes[name]
	if !ok || ref == nil {
		return nil
	}
	return ref.Value
}

type stringSet struct {
	seen  map[string]struct{}
	order []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]struct{})}
}

func (s *stringSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.order = append(s.order, v)
	}
}

func (s *stringSet) list() []string {
	return append([]string{}, s.order...)
}

package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/oauth"
)

func resolveAPIKey(_ context.Context, req schemeRequest) (api.ResolvedAuthScheme, *schemeFailure, error) {
	switch req.scheme.In {
	case "header", "query", "cookie":
	default:
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason: fmt.Sprintf("Unsupported apiKey location '%s' for '%s'", req.scheme.In, req.schemeName),
		}, nil
	}

	value, ok := req.creds.APIKey(req.schemeName)
	if !ok {
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason:     fmt.Sprintf("Missing API key for scheme '%s'", req.schemeName),
			missingEnv: []string{credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixAPIKey)},
		}, nil
	}
	return api.NewAPIKeyScheme(req.schemeName, req.scheme.In, req.scheme.Name, value), nil, nil
}

func resolveHTTP(_ context.Context, req schemeRequest) (api.ResolvedAuthScheme, *schemeFailure, error) {
	switch strings.ToLower(req.scheme.Scheme) {
	case "bearer":
		token, ok := req.creds.Token(req.schemeName)
		if !ok {
			return api.ResolvedAuthScheme{}, &schemeFailure{
				reason:     fmt.Sprintf("Missing Bearer token for scheme '%s'", req.schemeName),
				missingEnv: []string{credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixToken)},
			}, nil
		}
		return api.NewBearerScheme(req.schemeName, token), nil, nil

	case "basic":
		username, password, ok := req.creds.BasicCredentials(req.schemeName)
		if !ok {
			return api.ResolvedAuthScheme{}, &schemeFailure{
				reason: fmt.Sprintf("Missing Basic auth credentials for scheme '%s'", req.schemeName),
				missingEnv: []string{
					credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixUsername),
					credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixPassword),
				},
			}, nil
		}
		return api.NewBasicScheme(req.schemeName, username, password), nil, nil

	default:
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason: fmt.Sprintf("HTTP auth scheme '%s' is not supported", req.scheme.Scheme),
		}, nil
	}
}

// resolveOAuth2 handles the clientCredentials flow only. A failed grant is a
// hard error, not a requirement failure.
func (r *Resolver) resolveOAuth2(ctx context.Context, req schemeRequest) (api.ResolvedAuthScheme, *schemeFailure, error) {
	if req.scheme.Flows == nil || req.scheme.Flows.ClientCredentials == nil {
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason: fmt.Sprintf("Scheme '%s' does not support clientCredentials flow", req.schemeName),
		}, nil
	}
	flow := req.scheme.Flows.ClientCredentials

	creds, err := req.creds.OAuthClientCredentials(req.schemeName)
	if err != nil {
		return api.ResolvedAuthScheme{}, nil, err
	}
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason: fmt.Sprintf("Missing OAuth2 client credentials for '%s'", req.schemeName),
			missingEnv: []string{
				credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixClientID),
				credentials.VarName(req.api.Name, req.schemeName, credentials.SuffixClientSecret),
			},
		}, nil
	}

	settings := req.api.Config.OAuth2
	if settings == nil {
		settings = &api.OAuth2Settings{}
	}

	tokenURL := firstNonEmpty(creds.TokenURL, settings.TokenURLOverride, flow.TokenURL)
	if tokenURL == "" {
		return api.ResolvedAuthScheme{}, &schemeFailure{
			reason: fmt.Sprintf("No OAuth2 token URL resolved for scheme '%s'", req.schemeName),
		}, nil
	}

	method := api.TokenAuthClientSecretBasic
	switch {
	case creds.TokenAuthMethod != "":
		method = creds.TokenAuthMethod
	case settings.TokenEndpointAuthMethod != "":
		method = settings.TokenEndpointAuthMethod
	}

	var scopes []string
	switch {
	case len(creds.Scopes) > 0:
		scopes = creds.Scopes
	case len(settings.Scopes) > 0:
		scopes = settings.Scopes
	case len(req.scopes) > 0:
		scopes = req.scopes
	default:
		for scope := range flow.Scopes {
			scopes = append(scopes, scope)
		}
		sort.Strings(scopes)
	}

	token, err := r.tokens.GetToken(ctx, oauth.TokenRequest{
		Key:          oauth.NewCacheKey(req.api.Name, req.schemeName, creds.ClientID, tokenURL, method, scopes),
		TokenURL:     tokenURL,
		ClientID:     creds.ClientID,
		ClientSecret: api.NewSecret(creds.ClientSecret),
		Scopes:       scopes,
		AuthMethod:   method,
	})
	if err != nil {
		return api.ResolvedAuthScheme{}, nil, err
	}
	return api.NewOAuth2Scheme(req.schemeName, token), nil, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

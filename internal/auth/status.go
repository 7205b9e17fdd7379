package auth

import (
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/credentials"
)

// SchemeStatus reports which credential variables a security scheme reads and
// which of the required ones are unset.
type SchemeStatus struct {
	Scheme     string   `json:"scheme"`
	Type       string   `json:"type"`
	Supported  bool     `json:"supported"`
	Required   []string `json:"requiredEnv"`
	MissingEnv []string `json:"missingEnv"`
}

// Ready reports whether the scheme can be resolved from the environment.
func (s SchemeStatus) Ready() bool {
	return s.Supported && len(s.MissingEnv) == 0
}

// CredentialStatus inspects every security scheme of desc against env without
// contacting any token endpoint. Schemes are reported in name order.
func CredentialStatus(desc *api.APIDescriptor, env credentials.Env) []SchemeStatus {
	var out []SchemeStatus
	if desc.Document == nil || desc.Document.Components == nil {
		return out
	}

	names := make([]string, 0, len(desc.Document.Components.SecuritySchemes))
	for name := range desc.Document.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		status := SchemeStatus{Scheme: name, Required: []string{}, MissingEnv: []string{}}
		scheme := lookupScheme(desc, name)
		if scheme == nil {
			out = append(out, status)
			continue
		}
		status.Type = scheme.Type

		var suffixes []string
		status.Supported, suffixes = requiredSuffixes(scheme)
		for _, suffix := range suffixes {
			varName := credentials.VarName(desc.Name, name, suffix)
			status.Required = append(status.Required, varName)
			if _, ok := env.Lookup(varName); !ok {
				status.MissingEnv = append(status.MissingEnv, varName)
			}
		}
		out = append(out, status)
	}
	return out
}

func requiredSuffixes(scheme *openapi3.SecurityScheme) (bool, []string) {
	switch scheme.Type {
	case "apiKey":
		switch scheme.In {
		case "header", "query", "cookie":
			return true, []string{credentials.SuffixAPIKey}
		}
	case "http":
		switch strings.ToLower(scheme.Scheme) {
		case "bearer":
			return true, []string{credentials.SuffixToken}
		case "basic":
			return true, []string{credentials.SuffixUsername, credentials.SuffixPassword}
		}
	case "oauth2":
		if scheme.Flows != nil && scheme.Flows.ClientCredentials != nil {
			return true, []string{credentials.SuffixClientID, credentials.SuffixClientSecret}
		}
	}
	return false, nil
}

package executor

import (
	"encoding/base64"
	"net/url"
	"strings"

	"openapi-mcp/internal/api"
)

const (
	headerAuthorization = "Authorization"
	headerAccept        = "Accept"
	headerContentType   = "Content-Type"
	headerCookie        = "Cookie"
	headerRetryAfter    = "Retry-After"
)

// headerSet is a header map with case-insensitive names. The last write keeps
// its spelling.
type headerSet map[string]string

func (h headerSet) set(name, value string) {
	h.del(name)
	h[name] = value
}

func (h headerSet) get(name string) (string, bool) {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func (h headerSet) del(name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}

func (h headerSet) merge(src map[string]string) {
	for _, k := range sortedKeys(src) {
		h.set(k, src[k])
	}
}

// applyAuth writes resolved credentials onto the request parts.
func applyAuth(schemes []api.ResolvedAuthScheme, headers headerSet, query url.Values, cookies map[string]string) {
	for _, scheme := range schemes {
		switch scheme.Kind {
		case api.AuthKindAPIKey:
			switch scheme.In {
			case "header":
				headers.set(scheme.ParamName, scheme.Value.Reveal())
			case "query":
				query.Set(scheme.ParamName, scheme.Value.Reveal())
			case "cookie":
				cookies[scheme.ParamName] = scheme.Value.Reveal()
			}
		case api.AuthKindHTTP:
			if scheme.HTTPScheme == "basic" {
				raw := scheme.Username + ":" + scheme.Password.Reveal()
				headers.set(headerAuthorization, "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
				continue
			}
			headers.set(headerAuthorization, "Bearer "+scheme.Token.Reveal())
		case api.AuthKindOAuth2:
			headers.set(headerAuthorization, "Bearer "+scheme.Token.Reveal())
		}
	}
}

// cookieHeader joins cookies as k=v pairs in key order, or returns "".
func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(cookies))
	for _, k := range sortedKeys(cookies) {
		pairs = append(pairs, escapeComponent(k)+"="+escapeComponent(cookies[k]))
	}
	return strings.Join(pairs, "; ")
}

func isSensitiveHeader(name string) bool {
	lower := strings.ToLower(name)
	return lower == "authorization" || lower == "cookie" || strings.Contains(lower, "api-key")
}

// redactHeaders copies headers for the request echo with credentials masked.
func redactHeaders(headers headerSet) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if isSensitiveHeader(k) {
			out[k] = api.RedactionMarker
			continue
		}
		out[k] = v
	}
	return out
}

package executor

import (
	"fmt"
	"regexp"
	"strings"

	"openapi-mcp/internal/api"
)

var pathPlaceholder = regexp.MustCompile(`\{([^}]+)\}`)

// expandPath substitutes every {name} placeholder of template. A placeholder
// without a non-nil value fails the call.
func expandPath(template string, params map[string]any) (string, error) {
	var missing string
	expanded := pathPlaceholder.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := params[name]
		if !ok || value == nil {
			if missing == "" {
				missing = name
			}
			return match
		}
		return pathSegment(value)
	})
	if missing != "" {
		return "", api.NewRequestError(fmt.Sprintf("Missing path parameter '%s'", missing), map[string]any{
			"parameter": missing,
		})
	}
	return expanded, nil
}

func pathSegment(value any) string {
	if items, ok := asArray(value); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = escapeComponent(stringify(item))
		}
		return strings.Join(parts, ",")
	}
	if obj, ok := asObject(value); ok {
		flat := make([]string, 0, 2*len(obj))
		for _, k := range sortedKeys(obj) {
			flat = append(flat, k, stringify(obj[k]))
		}
		return escapeComponent(strings.Join(flat, ","))
	}
	return escapeComponent(stringify(value))
}

// joinBaseAndPath concatenates a base URL and an API path with exactly one slash.
func joinBaseAndPath(baseURL, apiPath string) string {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(apiPath, "/") {
		apiPath = "/" + apiPath
	}
	return base + apiPath
}

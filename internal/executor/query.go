package executor

import (
	"net/url"
	"strings"

	"openapi-mcp/internal/api"
)

const (
	styleForm       = "form"
	styleDeepObject = "deepObject"
)

type queryStyle struct {
	style   string
	explode bool
}

// declaredQueryStyles maps query parameter names to their declared style and
// explode flag, with form/true defaults.
func declaredQueryStyles(ep *api.EndpointDefinition) map[string]queryStyle {
	styles := make(map[string]queryStyle)
	for _, param := range ep.Parameters() {
		if param.In != "query" {
			continue
		}
		s := queryStyle{style: styleForm, explode: true}
		if param.Style != "" {
			s.style = param.Style
		}
		if param.Explode != nil {
			s.explode = *param.Explode
		}
		styles[param.Name] = s
	}
	return styles
}

// serializeQuery encodes caller query values. Keys are visited in sorted order
// and nil values are skipped.
func serializeQuery(ep *api.EndpointDefinition, query map[string]any) url.Values {
	values := url.Values{}
	styles := declaredQueryStyles(ep)

	for _, key := range sortedKeys(query) {
		value := query[key]
		if value == nil {
			continue
		}
		s, ok := styles[key]
		if !ok {
			s = queryStyle{style: styleForm, explode: true}
		}
		appendQueryValue(values, key, value, s)
	}
	return values
}

func appendQueryValue(values url.Values, key string, value any, s queryStyle) {
	if obj, ok := asObject(value); ok && s.style == styleDeepObject {
		for _, nested := range sortedKeys(obj) {
			if obj[nested] == nil {
				continue
			}
			values.Add(key+"["+nested+"]", stringify(obj[nested]))
		}
		return
	}

	if items, ok := asArray(value); ok {
		if s.explode {
			for _, item := range items {
				values.Add(key, stringify(item))
			}
			return
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = stringify(item)
		}
		values.Add(key, strings.Join(parts, ","))
		return
	}

	if obj, ok := asObject(value); ok {
		if s.explode {
			for _, k := range sortedKeys(obj) {
				values.Add(k, stringify(obj[k]))
			}
			return
		}
		flat := make([]string, 0, 2*len(obj))
		for _, k := range sortedKeys(obj) {
			flat = append(flat, k, stringify(obj[k]))
		}
		values.Add(key, strings.Join(flat, ","))
		return
	}

	values.Add(key, stringify(value))
}

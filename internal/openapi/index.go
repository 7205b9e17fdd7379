package openapi

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"

	"openapi-mcp/internal/api"
)

// Index is the endpoint catalog of one document.
type Index struct {
	// Endpoints is sorted by path, then method.
	Endpoints []*api.EndpointDefinition
	ByID      map[string]*api.EndpointDefinition
}

// BuildIndex assigns every operation of doc a stable endpoint id.
//
// An operationId used exactly once in the document becomes the id verbatim.
// Any other operation, including every operation sharing a repeated
// operationId, gets "<METHOD> <path>". Two endpoints with the same id are a
// SCHEMA_ERROR.
func BuildIndex(doc *openapi3.T) (*Index, error) {
	idx := &Index{ByID: make(map[string]*api.EndpointDefinition)}
	if doc == nil || doc.Paths == nil {
		return idx, nil
	}

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for p := range paths {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	opIDCounts := make(map[string]int)
	for _, p := range keys {
		item := paths[p]
		if item == nil {
			continue
		}
		for _, method := range api.HTTPMethods {
			if op := operationFor(item, method); op != nil && op.OperationID != "" {
				opIDCounts[op.OperationID]++
			}
		}
	}

	for _, p := range keys {
		item := paths[p]
		if item == nil {
			continue
		}
		for _, method := range api.HTTPMethods {
			op := operationFor(item, method)
			if op == nil {
				continue
			}

			id := op.OperationID
			if id == "" || opIDCounts[id] != 1 {
				id = strings.ToUpper(method) + " " + normalizePathForID(p)
			}

			if _, exists := idx.ByID[id]; exists {
				return nil, api.NewSchemaError(fmt.Sprintf("Endpoint ID collision for '%s'", id), map[string]any{
					"path":   p,
					"method": method,
				})
			}

			ep := &api.EndpointDefinition{
				EndpointID:  id,
				Method:      method,
				Path:        p,
				OperationID: op.OperationID,
				Summary:     op.Summary,
				Description: op.Description,
				Tags:        op.Tags,
				Operation:   op,
				PathItem:    item,
			}
			idx.ByID[id] = ep
			idx.Endpoints = append(idx.Endpoints, ep)
		}
	}

	sort.SliceStable(idx.Endpoints, func(i, j int) bool {
		a, b := idx.Endpoints[i], idx.Endpoints[j]
		if a.Path == b.Path {
			return a.Method < b.Method
		}
		return a.Path < b.Path
	})
	return idx, nil
}

func operationFor(item *openapi3.PathItem, method string) *openapi3.Operation {
	switch method {
	case "get":
		return item.Get
	case "put":
		return item.Put
	case "post":
		return item.Post
	case "delete":
		return item.Delete
	case "options":
		return item.Options
	case "head":
		return item.Head
	case "patch":
		return item.Patch
	case "trace":
		return item.Trace
	}
	return nil
}

// normalizePathForID drops whitespace and trailing slashes; "" becomes "/".
func normalizePathForID(p string) string {
	p = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return "/"
	}
	return p
}

package openapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"

	"openapi-mcp/internal/api"
)

// ToJSONTree converts v into plain JSON values (map[string]any, []any, ...).
func ToJSONTree(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return tree, nil
}

// Lookup resolves an RFC 6901 pointer against a JSON tree. An empty pointer
// returns the root. Failures are SCHEMA_ERROR.
func Lookup(root any, pointer string) (any, error) {
	if pointer == "" {
		return root, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, api.NewSchemaError("JSON pointer must start with '/'", map[string]any{"pointer": pointer})
	}

	ptr, err := jsonpointer.New(pointer)
	if err != nil {
		return nil, api.NewSchemaError("JSON pointer must start with '/'", map[string]any{"pointer": pointer}).WithCause(err)
	}

	cursor := root
	for _, token := range ptr.DecodedTokens() {
		switch node := cursor.(type) {
		case []any:
			i, convErr := strconv.Atoi(token)
			if convErr != nil || i < 0 || i >= len(node) {
				return nil, api.NewSchemaError("JSON pointer index out of bounds", map[string]any{"pointer": pointer, "token": token})
			}
			cursor = node[i]
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, api.NewSchemaError("JSON pointer target does not exist", map[string]any{"pointer": pointer, "token": token})
			}
			cursor = next
		default:
			return nil, api.NewSchemaError("JSON pointer target does not exist", map[string]any{"pointer": pointer, "token": token})
		}
	}
	return cursor, nil
}

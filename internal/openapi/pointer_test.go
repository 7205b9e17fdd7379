package openapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
)

func TestLookup(t *testing.T) {
	root, err := ToJSONTree(map[string]any{
		"paths": map[string]any{
			"/pets/{id}": map[string]any{"get": map[string]any{"operationId": "showPet"}},
		},
		"servers": []any{map[string]any{"url": "https://a"}, map[string]any{"url": "https://b"}},
		"a~b":     "tilde",
	})
	require.NoError(t, err)

	got, err := Lookup(root, "")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = Lookup(root, "/paths/~1pets~1{id}/get/operationId")
	require.NoError(t, err)
	assert.Equal(t, "showPet", got)

	got, err = Lookup(root, "/servers/1/url")
	require.NoError(t, err)
	assert.Equal(t, "https://b", got)

	got, err = Lookup(root, "/a~0b")
	require.NoError(t, err)
	assert.Equal(t, "tilde", got)
}

func TestLookup_Errors(t *testing.T) {
	root, err := ToJSONTree(map[string]any{
		"servers": []any{"x"},
		"info":    map[string]any{"title": "t"},
	})
	require.NoError(t, err)

	tests := []struct {
		pointer string
		wantMsg string
	}{
		{"servers", "JSON pointer must start with '/'"},
		{"/servers/5", "JSON pointer index out of bounds"},
		{"/servers/-1", "JSON pointer index out of bounds"},
		{"/servers/first", "JSON pointer index out of bounds"},
		{"/info/missing", "JSON pointer target does not exist"},
		{"/info/title/deeper", "JSON pointer target does not exist"},
	}

	for _, tt := range tests {
		t.Run(tt.pointer, func(t *testing.T) {
			_, err := Lookup(root, tt.pointer)
			require.Error(t, err)

			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, api.KindSchema, apiErr.Kind)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

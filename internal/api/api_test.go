package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestError_MarshalJSON(t *testing.T) {
	err := NewAuthError("Could not resolve authentication for 'petstore'", map[string]any{
		"endpointId": "listPets",
	}).WithCause(errors.New("hidden"))

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "AUTH_ERROR", payload["code"])
	assert.Equal(t, "Could not resolve authentication for 'petstore'", payload["message"])
	assert.Equal(t, map[string]any{"endpointId": "listPets"}, payload["details"])
	assert.NotContains(t, string(data), "hidden")
}

func TestIsKind(t *testing.T) {
	base := NewEndpointNotFoundError("petstore", "nope")
	wrapped := fmt.Errorf("lookup: %w", base)

	assert.True(t, IsKind(wrapped, KindEndpointNotFound))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsKind(wrapped, KindAuth))
	assert.False(t, IsKind(errors.New("plain"), KindRequest))
}

func TestAsErrorResponse(t *testing.T) {
	resp := AsErrorResponse(fmt.Errorf("wrapped: %w", NewSchemaError("bad pointer", nil)))
	assert.Equal(t, KindSchema, resp.Code)
	assert.Equal(t, "bad pointer", resp.Message)

	resp = AsErrorResponse(errors.New("boom"))
	assert.Equal(t, KindRequest, resp.Code)
	assert.Equal(t, "boom", resp.Message)
}

func TestError_WithDetail(t *testing.T) {
	err := NewRequestError("Missing path parameter 'id'", nil).WithDetail("parameter", "id")
	assert.Equal(t, "id", err.Details["parameter"])
	assert.Equal(t, "REQUEST_ERROR: Missing path parameter 'id'", err.Error())
}

func TestSecret(t *testing.T) {
	s := NewSecret("super-secret")

	assert.Equal(t, "super-secret", s.Reveal())
	assert.Equal(t, RedactionMarker, fmt.Sprintf("%v", s))
	assert.Equal(t, RedactionMarker, fmt.Sprintf("%s", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "super-secret")

	scheme := NewBearerScheme("BearerAuth", "super-secret")
	data, err := json.Marshal(scheme)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")
	assert.NotContains(t, fmt.Sprintf("%+v", scheme), "super-secret")
}

func TestResolveRetryPolicy(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		assert.Equal(t, DefaultRetryPolicy, ResolveRetryPolicy(nil, nil))
	})

	t.Run("call overrides api", func(t *testing.T) {
		apiLevel := &RetryOverride{MaxRetries: intPtr(2), BaseDelayMs: intPtr(100)}
		call := &RetryOverride{MaxRetries: intPtr(5)}

		p := ResolveRetryPolicy(apiLevel, call)
		assert.Equal(t, 5, p.MaxRetries)
		assert.Equal(t, 100, p.BaseDelayMs)
		assert.Equal(t, 5000, p.MaxDelayMs)
		assert.True(t, p.RespectRetryAfter)
	})

	t.Run("clamped", func(t *testing.T) {
		p := ResolveRetryPolicy(nil, &RetryOverride{
			MaxRetries:        intPtr(-3),
			BaseDelayMs:       intPtr(0),
			MaxDelayMs:        intPtr(-10),
			JitterRatio:       floatPtr(4),
			RespectRetryAfter: boolPtr(false),
		})
		assert.Equal(t, RetryPolicy{MaxRetries: 0, BaseDelayMs: 1, MaxDelayMs: 1, JitterRatio: 1}, p)

		p = ResolveRetryPolicy(&RetryOverride{JitterRatio: floatPtr(-0.5)}, nil)
		assert.Equal(t, 0.0, p.JitterRatio)
	})
}

func TestTokenAuthMethod_Valid(t *testing.T) {
	assert.True(t, TokenAuthClientSecretBasic.Valid())
	assert.True(t, TokenAuthClientSecretPost.Valid())
	assert.False(t, TokenAuthMethod("private_key_jwt").Valid())
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func fields(errs ValidationErrors) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidate(t *testing.T) {
	valid := api.APIConfig{Name: "petstore", SpecURL: "https://example.com/spec.json"}

	tests := []struct {
		name       string
		cfg        Config
		wantFields []string
	}{
		{
			name: "valid",
			cfg:  Config{Version: 1, APIs: []api.APIConfig{valid}},
		},
		{
			name:       "no apis",
			cfg:        Config{Version: 1},
			wantFields: []string{"apis"},
		},
		{
			name:       "both spec sources",
			cfg:        Config{Version: 1, APIs: []api.APIConfig{{Name: "a", SpecPath: "x.yaml", SpecURL: "https://e.com/x"}}},
			wantFields: []string{"apis[0]"},
		},
		{
			name:       "neither spec source and no name",
			cfg:        Config{Version: 1, APIs: []api.APIConfig{{}}},
			wantFields: []string{"apis[0].name", "apis[0]"},
		},
		{
			name: "bad urls and ranges",
			cfg: Config{Version: 1, APIs: []api.APIConfig{{
				Name:      "a",
				SpecURL:   "not a url",
				BaseURL:   "/relative",
				TimeoutMs: -1,
				OAuth2: &api.OAuth2Settings{
					TokenURLOverride:        "nope",
					Scopes:                  []string{"read", ""},
					TokenEndpointAuthMethod: "private_key_jwt",
				},
				Retry429: &api.RetryOverride{
					MaxRetries:  intPtr(-1),
					BaseDelayMs: intPtr(0),
					MaxDelayMs:  intPtr(-5),
					JitterRatio: floatPtr(1.5),
				},
			}}},
			wantFields: []string{
				"apis[0].specUrl",
				"apis[0].baseUrl",
				"apis[0].timeoutMs",
				"apis[0].oauth2.tokenUrlOverride",
				"apis[0].oauth2.scopes[1]",
				"apis[0].oauth2.tokenEndpointAuthMethod",
				"apis[0].retry429.maxRetries",
				"apis[0].retry429.baseDelayMs",
				"apis[0].retry429.maxDelayMs",
				"apis[0].retry429.jitterRatio",
			},
		},
		{
			name:       "bad server",
			cfg:        Config{Version: 1, APIs: []api.APIConfig{valid}, Server: ServerConfig{Transport: "sse", Port: 70000}},
			wantFields: []string{"server.transport", "server.port"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.cfg)
			assert.Equal(t, tt.wantFields, fields(errs))
		})
	}
}

func TestValidationErrors_AsConfigError(t *testing.T) {
	var errs ValidationErrors
	errs.Add("version", "must be 1")
	errs.Add("apis", "must contain at least one API")

	err := errs.AsConfigError()
	require.NotNil(t, err)
	assert.Equal(t, api.KindConfig, err.Kind)
	assert.Equal(t, "Config validation failed", err.Message)
	assert.Len(t, err.Details["issues"], 2)
	assert.Contains(t, errs.Error(), "validation failed: field 'version': must be 1")
}

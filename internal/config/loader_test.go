package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/credentials"
)

// writeFile creates a file under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadConfig_ResolvesSpecPathAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "specs/petstore.yaml", "openapi: 3.0.3\n")
	cfgPath := writeFile(t, dir, "openapi-mcp.yaml", `
version: 1
apis:
  - name: petstore
    specPath: ./specs/petstore.yaml
    headers:
      X-Team: core
    retry429:
      maxRetries: 2
  - name: weather
    specUrl: https://example.com/weather.json
    timeoutMs: 5000
`)

	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)

	require.Len(t, cfg.APIs, 2)
	assert.Equal(t, filepath.Join(dir, "specs", "petstore.yaml"), cfg.APIs[0].SpecPath)
	assert.Equal(t, api.DefaultTimeoutMs, cfg.APIs[0].TimeoutMs)
	assert.Equal(t, map[string]string{"X-Team": "core"}, cfg.APIs[0].Headers)
	require.NotNil(t, cfg.APIs[0].Retry429)
	assert.Equal(t, 2, *cfg.APIs[0].Retry429.MaxRetries)
	assert.Nil(t, cfg.APIs[0].Retry429.BaseDelayMs)

	assert.Equal(t, 5000, cfg.APIs[1].TimeoutMs)
	assert.Equal(t, "https://example.com/weather.json", cfg.APIs[1].Source())

	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, "localhost:8090", cfg.Server.Addr())
	assert.Equal(t, cfgPath, cfg.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "invalid yaml",
			content: "version: [1\n",
			wantMsg: "Invalid YAML in config",
		},
		{
			name:    "missing spec file",
			content: "version: 1\napis:\n  - name: a\n    specPath: ./nope.yaml\n",
			wantMsg: "OpenAPI schema file not found",
		},
		{
			name: "duplicate normalized names",
			content: `version: 1
apis:
  - name: pet-store
    specUrl: https://example.com/a.json
  - name: PET STORE
    specUrl: https://example.com/b.json
`,
			wantMsg: "Duplicate API name: PET STORE",
		},
		{
			name:    "wrong version",
			content: "version: 2\napis:\n  - name: a\n    specUrl: https://example.com/a.json\n",
			wantMsg: "Config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			p := writeFile(t, dir, "config.yaml", tt.content)

			_, err := LoadConfig(p)
			require.Error(t, err)
			assert.True(t, api.IsKind(err, api.KindConfig))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindConfig))
	assert.Contains(t, err.Error(), "Cannot read config file")
}

func TestParse_ServerSettings(t *testing.T) {
	cfg, err := Parse([]byte(`
version: 1
apis:
  - name: a
    specUrl: https://example.com/a.json
server:
  transport: streamable-http
  port: 9000
`))
	require.NoError(t, err)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, "localhost:9000", cfg.Server.Addr())

	found, ok := cfg.FindAPI("A")
	assert.True(t, ok)
	assert.Equal(t, "a", found.Name)
}

func TestDefaultConfigPath(t *testing.T) {
	assert.Equal(t, DefaultConfigFileName, DefaultConfigPath(credentials.Env{}))
	assert.Equal(t, "/etc/x.yaml", DefaultConfigPath(credentials.Env{"OPENAPI_MCP_CONFIG": "/etc/x.yaml"}))
}

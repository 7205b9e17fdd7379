package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/config"
	"openapi-mcp/internal/credentials"
)

const widgetsSpec = `
openapi: 3.0.3
info: {title: Widgets, version: "1"}
servers: [{url: https://widgets.example.com}]
paths:
  /widgets:
    get:
      operationId: listWidgets
      responses: {"200": {description: ok}}
`

const gadgetsSpec = `
openapi: 3.0.3
info: {title: Gadgets, version: "1"}
servers: [{url: https://gadgets.example.com}]
paths:
  /gadgets:
    get:
      operationId: listGadgets
      responses: {"200": {description: ok}}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// setupConfig writes a config file naming the given APIs, each backed by a
// spec file in the same directory.
func setupConfig(t *testing.T, dir string, specs map[string]string) string {
	t.Helper()
	body := "version: 1\napis:\n"
	for name, spec := range specs {
		file := name + ".yaml"
		writeFile(t, filepath.Join(dir, file), spec)
		body += "  - name: " + name + "\n    specPath: ./" + file + "\n"
	}
	path := filepath.Join(dir, "openapi-mcp.yaml")
	writeFile(t, path, body)
	return path
}

func loadServices(t *testing.T, path string) *Services {
	t.Helper()
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	services, err := InitializeServices(context.Background(), cfg, credentials.Env{}, "test")
	require.NoError(t, err)
	return services
}

func TestInitializeServices(t *testing.T) {
	path := setupConfig(t, t.TempDir(), map[string]string{"widgets": widgetsSpec})
	services := loadServices(t, path)

	desc, ep, err := services.Catalog.Endpoint("WIDGETS", "listWidgets")
	require.NoError(t, err)
	assert.Equal(t, "https://widgets.example.com", desc.BaseURL)
	assert.Equal(t, "/widgets", ep.Path)
	assert.NotNil(t, services.Server)
	assert.NotNil(t, services.Executor)
}

func TestInitializeServices_BadDocument(t *testing.T) {
	path := setupConfig(t, t.TempDir(), map[string]string{"broken": "openapi: 2.5\ninfo: {title: x, version: '1'}\npaths: {}\n"})
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	_, err = InitializeServices(context.Background(), cfg, credentials.Env{}, "test")
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindSchema))
}

func TestServices_Reload(t *testing.T) {
	dir := t.TempDir()
	path := setupConfig(t, dir, map[string]string{"widgets": widgetsSpec})
	services := loadServices(t, path)
	tokens := services.Tokens

	setupConfig(t, dir, map[string]string{"gadgets": gadgetsSpec})
	require.NoError(t, services.Reload(context.Background()))

	_, err := services.Catalog.API("widgets")
	assert.True(t, api.IsKind(err, api.KindAPINotFound))
	_, _, err = services.Catalog.Endpoint("gadgets", "listGadgets")
	assert.NoError(t, err)
	assert.Same(t, tokens, services.Tokens)
	assert.Equal(t, "gadgets", services.Config().APIs[0].Name)
}

func TestServices_ReloadFailureKeepsRegistry(t *testing.T) {
	dir := t.TempDir()
	path := setupConfig(t, dir, map[string]string{"widgets": widgetsSpec})
	services := loadServices(t, path)
	before := services.Catalog.Registry()

	writeFile(t, path, "version: 1\napis: [")
	err := services.Reload(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindConfig))
	assert.Same(t, before, services.Catalog.Registry())

	writeFile(t, path, "version: 1\napis:\n  - name: widgets\n    specPath: ./missing.yaml\n")
	require.Error(t, services.Reload(context.Background()))
	_, err = services.Catalog.API("widgets")
	assert.NoError(t, err)
}

func TestServices_ConcurrentReloads(t *testing.T) {
	dir := t.TempDir()
	path := setupConfig(t, dir, map[string]string{"widgets": widgetsSpec})
	services := loadServices(t, path)
	setupConfig(t, dir, map[string]string{"gadgets": gadgetsSpec})

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = services.Reload(context.Background())
			_ = services.Config().Path
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, "gadgets", services.Config().APIs[0].Name)
	_, _, err := services.Catalog.Endpoint("gadgets", "listGadgets")
	assert.NoError(t, err)
}

func TestLiveCatalog_Swap(t *testing.T) {
	dir := t.TempDir()
	first := loadServices(t, setupConfig(t, dir, map[string]string{"widgets": widgetsSpec}))
	second := loadServices(t, setupConfig(t, t.TempDir(), map[string]string{"gadgets": gadgetsSpec}))

	catalog := NewLiveCatalog(first.Catalog.Registry())
	require.Len(t, catalog.APIs(), 1)
	assert.Equal(t, "widgets", catalog.APIs()[0].Name)

	old := catalog.Swap(second.Catalog.Registry())
	assert.Same(t, first.Catalog.Registry(), old)
	assert.Equal(t, "gadgets", catalog.APIs()[0].Name)
}

func TestApplyOverrides(t *testing.T) {
	fileCfg := config.Config{Server: config.ServerConfig{Transport: config.TransportStdio, Host: "localhost", Port: 8090}}

	applyOverrides(&fileCfg, &Config{})
	assert.Equal(t, config.ServerConfig{Transport: config.TransportStdio, Host: "localhost", Port: 8090}, fileCfg.Server)

	applyOverrides(&fileCfg, &Config{Transport: config.TransportStreamableHTTP, Host: "0.0.0.0", Port: 9000})
	assert.Equal(t, "0.0.0.0:9000", fileCfg.Server.Addr())
	assert.Equal(t, config.TransportStreamableHTTP, fileCfg.Server.Transport)
}

func TestLoad_MissingConfig(t *testing.T) {
	_, err := Load(context.Background(), &Config{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.True(t, api.IsKind(err, api.KindConfig))
}

func TestWatchedFiles(t *testing.T) {
	cfg := config.Config{
		Path: "/etc/openapi-mcp.yaml",
		APIs: []api.APIConfig{
			{Name: "a", SpecPath: "/specs/a.yaml"},
			{Name: "b", SpecURL: "https://example.com/b.yaml"},
		},
	}
	assert.Equal(t, []string{"/etc/openapi-mcp.yaml", "/specs/a.yaml"}, watchedFiles(cfg))
}

func TestConfigWatcher_DebouncedReload(t *testing.T) {
	dir := t.TempDir()
	path := setupConfig(t, dir, map[string]string{"widgets": widgetsSpec})
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	var calls atomic.Int32
	w, err := NewConfigWatcher(cfg, func(context.Context) error {
		calls.Add(1)
		return nil
	}, 50*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watcher time to start draining events.
	time.Sleep(50 * time.Millisecond)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	for range 3 {
		writeFile(t, path, string(content))
	}

	require.Eventually(t, func() bool { return w.Reloads() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	// Unrelated files in a watched directory are ignored.
	writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	// Spec files trigger reloads too.
	writeFile(t, filepath.Join(dir, "widgets.yaml"), widgetsSpec)
	require.Eventually(t, func() bool { return w.Reloads() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestConfigWatcher_FailedReloadIsNotCounted(t *testing.T) {
	dir := t.TempDir()
	path := setupConfig(t, dir, map[string]string{"widgets": widgetsSpec})
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	var calls atomic.Int32
	w, err := NewConfigWatcher(cfg, func(context.Context) error {
		calls.Add(1)
		return errors.New("broken")
	}, 20*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	writeFile(t, path, "version: 1\n")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, w.Reloads())
}

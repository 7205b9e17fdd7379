package app

import (
	"context"
	"fmt"
	"sync"

	"openapi-mcp/internal/auth"
	"openapi-mcp/internal/config"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/executor"
	"openapi-mcp/internal/mcpserver"
	"openapi-mcp/internal/oauth"
	"openapi-mcp/internal/openapi"
	"openapi-mcp/internal/registry"
	"openapi-mcp/pkg/logging"
)

// Services holds every component built from one configuration.
//
// The token cache, resolver and executor live for the whole process. Only
// the registry behind Catalog is replaced when the configuration reloads, so
// cached OAuth tokens survive a reload.
type Services struct {
	Env      credentials.Env
	Loader   *openapi.Loader
	Catalog  *LiveCatalog
	Tokens   *oauth.TokenCache
	Resolver *auth.Resolver
	Executor *executor.Executor
	Server   *mcpserver.Server

	// reloadMu serializes Reload; mu guards cfg.
	reloadMu sync.Mutex
	mu       sync.RWMutex
	cfg      config.Config
}

// InitializeServices loads every API of cfg and wires the executor and MCP
// server on top of the resulting registry.
func InitializeServices(ctx context.Context, cfg config.Config, env credentials.Env, version string) (*Services, error) {
	loader := openapi.NewLoader(openapi.WithValidation(true))

	reg, err := registry.Load(ctx, cfg, env, loader)
	if err != nil {
		return nil, fmt.Errorf("failed to load APIs: %w", err)
	}

	catalog := NewLiveCatalog(reg)
	tokens := oauth.NewTokenCache()
	resolver := auth.NewResolver(tokens)
	exec := executor.New(catalog, resolver, env)

	logging.Debug("Bootstrap", "Initialized services for %d API(s)", len(reg.APIs()))
	return &Services{
		cfg:      cfg,
		Env:      env,
		Loader:   loader,
		Catalog:  catalog,
		Tokens:   tokens,
		Resolver: resolver,
		Executor: exec,
		Server:   mcpserver.New(catalog, exec, version),
	}, nil
}

// Config returns the configuration the current registry was loaded from.
func (s *Services) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload re-reads the configuration file and swaps in a freshly loaded
// registry. On any failure the current registry stays in place. Concurrent
// calls run one at a time, so the last reload to start is the last to swap.
func (s *Services) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	cfg, err := config.LoadConfig(s.Config().Path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	reg, err := registry.Load(ctx, cfg, s.Env, s.Loader)
	if err != nil {
		return fmt.Errorf("failed to reload APIs: %w", err)
	}

	s.mu.Lock()
	s.Catalog.Swap(reg)
	s.cfg = cfg
	s.mu.Unlock()
	logging.Info("Bootstrap", "Reloaded configuration: %d API(s)", len(reg.APIs()))
	return nil
}

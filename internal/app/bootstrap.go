package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"openapi-mcp/internal/config"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/pkg/logging"
)

// Application bootstraps and runs the openapi-mcp server.
//
// Initialization happens in two phases:
//  1. NewApplication configures logging, loads the configuration file and
//     every API document, and wires the MCP server.
//  2. Run serves MCP on the configured transport until the context ends.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "openapi-mcp.yaml")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication runs the bootstrap phase. Any configuration or document
// problem is returned before anything is served.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	InitLogging(cfg)

	services, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Application{config: cfg, services: services}, nil
}

// InitLogging installs the logger selected by cfg.
func InitLogging(cfg *Config) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}

	var out io.Writer = os.Stderr
	if cfg.LogOutput != nil {
		out = cfg.LogOutput
	}

	if cfg.LogFormat == "json" {
		logging.InitForJSON(level, out)
	} else {
		logging.InitForCLI(level, out)
	}
}

// Load reads the configuration named by cfg, applies its overrides and
// initializes every service. The CLI commands that do not serve MCP use it
// directly.
func Load(ctx context.Context, cfg *Config) (*Services, error) {
	env := credentials.FromEnviron()

	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultConfigPath(env)
	}

	fileCfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", path)
		return nil, err
	}
	applyOverrides(&fileCfg, cfg)

	services, err := InitializeServices(ctx, fileCfg, env, cfg.Version)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, err
	}
	return services, nil
}

func applyOverrides(fileCfg *config.Config, cfg *Config) {
	if cfg.Transport != "" {
		fileCfg.Server.Transport = cfg.Transport
	}
	if cfg.Host != "" {
		fileCfg.Server.Host = cfg.Host
	}
	if cfg.Port != 0 {
		fileCfg.Server.Port = cfg.Port
	}
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run serves MCP until ctx is cancelled. With Watch set, configuration
// changes are picked up without a restart.
func (a *Application) Run(ctx context.Context) error {
	if a.config.Watch {
		if err := a.startWatcher(ctx); err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
	}
	return serve(ctx, a.services)
}

func (a *Application) startWatcher(ctx context.Context) error {
	var w *ConfigWatcher
	reload := func(ctx context.Context) error {
		if err := a.services.Reload(ctx); err != nil {
			return err
		}
		w.track(a.services.Config())
		return nil
	}

	w, err := NewConfigWatcher(a.services.Config(), reload, 0)
	if err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}

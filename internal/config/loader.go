package config

import (
	"fmt"
	"os"
	"path/filepath"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/pkg/logging"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, parses, defaults and validates the configuration file at
// configPath. Relative specPath entries are resolved against the directory of
// the config file and must exist. Every failure is a CONFIG_ERROR.
func LoadConfig(configPath string) (Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		absPath = configPath
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		logging.Debug("Config", "Error reading %s: %v", absPath, err)
		return Config{}, api.NewConfigError(fmt.Sprintf("Cannot read config file: %s", configPath), map[string]any{
			"cause": err.Error(),
		}).WithCause(err)
	}

	cfg, err := parse(data, configPath)
	if err != nil {
		return Config{}, err
	}
	cfg.Path = absPath

	if err := resolveSpecPaths(&cfg, filepath.Dir(absPath)); err != nil {
		return Config{}, err
	}

	logging.Info("Config", "Loaded configuration from %s (%d API(s))", absPath, len(cfg.APIs))
	return cfg, nil
}

// Parse decodes a configuration document, applies defaults and validates it.
// Spec paths are left as written.
func Parse(data []byte) (Config, error) {
	return parse(data, "")
}

func parse(data []byte, source string) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		msg := "Invalid YAML in config"
		if source != "" {
			msg += ": " + source
		}
		return Config{}, api.NewConfigError(msg, map[string]any{"cause": err.Error()}).WithCause(err)
	}

	if errs := Validate(cfg); errs.HasErrors() {
		return Config{}, errs.AsConfigError()
	}

	seen := make(map[string]string, len(cfg.APIs))
	for _, a := range cfg.APIs {
		key := credentials.Normalize(a.Name)
		if _, dup := seen[key]; dup {
			return Config{}, api.NewConfigError(fmt.Sprintf("Duplicate API name: %s", a.Name), map[string]any{
				"conflictsWith": seen[key],
			})
		}
		seen[key] = a.Name
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func resolveSpecPaths(cfg *Config, dir string) error {
	for i := range cfg.APIs {
		a := &cfg.APIs[i]
		if a.SpecPath == "" {
			continue
		}
		resolved := a.SpecPath
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(dir, resolved)
		}
		if _, err := os.Stat(resolved); err != nil {
			return api.NewConfigError(fmt.Sprintf("OpenAPI schema file not found: %s", resolved), map[string]any{
				"apiName": a.Name,
			})
		}
		a.SpecPath = resolved
	}
	return nil
}

// DefaultConfigPath returns the config file used when none is given: the
// OPENAPI_MCP_CONFIG variable, else openapi-mcp.yaml in the working directory.
func DefaultConfigPath(env credentials.Env) string {
	if p, ok := env.Lookup("OPENAPI_MCP_CONFIG"); ok {
		return p
	}
	return DefaultConfigFileName
}

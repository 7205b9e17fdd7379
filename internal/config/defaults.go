package config

import "openapi-mcp/internal/api"

const (
	// DefaultConfigFileName is looked up in the working directory when no --config flag is given.
	DefaultConfigFileName = "openapi-mcp.yaml"

	// DefaultHost is the bind host of the streamable-http transport.
	DefaultHost = "localhost"

	// DefaultPort is the bind port of the streamable-http transport.
	DefaultPort = 8090
)

// applyDefaults fills unset optional fields in place.
func applyDefaults(cfg *Config) {
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	for i := range cfg.APIs {
		if cfg.APIs[i].TimeoutMs == 0 {
			cfg.APIs[i].TimeoutMs = api.DefaultTimeoutMs
		}
	}
}

package config

import (
	"fmt"

	"openapi-mcp/internal/api"
)

const (
	// TransportStdio serves MCP over standard input and output.
	TransportStdio = "stdio"
	// TransportStreamableHTTP serves MCP over the streamable HTTP transport.
	TransportStreamableHTTP = "streamable-http"
)

// Config is the top-level configuration structure for openapi-mcp.
type Config struct {
	Version int             `yaml:"version"`
	APIs    []api.APIConfig `yaml:"apis"`
	Server  ServerConfig    `yaml:"server,omitempty"`

	// Path is the absolute path of the file the config was loaded from.
	Path string `yaml:"-"`
}

// ServerConfig defines how the MCP front-end is served.
type ServerConfig struct {
	Transport string `yaml:"transport,omitempty"` // stdio (default) or streamable-http
	Host      string `yaml:"host,omitempty"`      // bind host for streamable-http (default: localhost)
	Port      int    `yaml:"port,omitempty"`      // bind port for streamable-http (default: 8090)
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FindAPI returns the configuration of the named API, matched case-insensitively.
func (c Config) FindAPI(name string) (api.APIConfig, bool) {
	key := api.NormalizeName(name)
	for _, a := range c.APIs {
		if api.NormalizeName(a.Name) == key {
			return a, true
		}
	}
	return api.APIConfig{}, false
}

package app

import (
	"io"
	"os"
)

// Config holds the runtime options of one openapi-mcp invocation. Zero values
// fall back to the configuration file.
type Config struct {
	// Debug enables debug logging.
	Debug bool

	// LogFormat is "text" (default) or "json".
	LogFormat string

	// LogOutput receives log lines. Defaults to stderr so stdout stays free
	// for the stdio transport.
	LogOutput io.Writer

	// ConfigPath is the configuration file to load.
	ConfigPath string

	// Watch reloads the configuration whenever the file changes.
	Watch bool

	// Transport, Host and Port override the server section of the file.
	Transport string
	Host      string
	Port      int

	// Version is reported to MCP clients.
	Version string
}

// NewConfig creates a configuration for configPath.
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		LogOutput:  os.Stderr,
	}
}

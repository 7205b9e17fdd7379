package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"openapi-mcp/internal/app"
	"openapi-mcp/internal/config"
)

var (
	serveTransport string
	serveHost      string
	servePort      int
	serveWatch     bool
	serveLogFormat string
)

// serveCmd starts the MCP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the configured APIs as MCP tools",
	Long: `Loads every API named in the configuration file and serves five MCP tools:
list_apis, list_api_endpoints, get_api_endpoint, get_api_schema and
make_endpoint_request.

Transports:
  stdio            (default) MCP over standard input and output. Logs go to stderr.
  streamable-http  MCP over HTTP at http://<host>:<port>/mcp

With --watch, changes to the configuration file or a local API document are
picked up without a restart. A broken edit is logged and the previous
configuration stays in service.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	switch serveTransport {
	case "", config.TransportStdio, config.TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (use %s or %s)", serveTransport, config.TransportStdio, config.TransportStreamableHTTP)
	}
	switch serveLogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (use text or json)", serveLogFormat)
	}

	cfg := newAppConfig(cmd)
	cfg.Transport = serveTransport
	cfg.Host = serveHost
	cfg.Port = servePort
	cfg.Watch = serveWatch
	cfg.LogFormat = serveLogFormat

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	application, err := app.NewApplication(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveTransport, "transport", "", "Transport: stdio or streamable-http (overrides server.transport)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host for streamable-http (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port for streamable-http (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload when the configuration or a local API document changes")
	serveCmd.Flags().StringVar(&serveLogFormat, "log-format", "text", "Log format: text or json")
}

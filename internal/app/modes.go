package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"openapi-mcp/internal/config"
	"openapi-mcp/pkg/logging"
)

// serve runs the MCP server on the configured transport until ctx ends or
// the process receives SIGINT or SIGTERM.
func serve(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := services.Config().Server
	switch srv.Transport {
	case config.TransportStdio, "":
		return services.Server.ServeStdio(ctx)
	case config.TransportStreamableHTTP:
		logging.Info("Bootstrap", "MCP endpoint available at http://%s/mcp", srv.Addr())
		return services.Server.ServeHTTP(ctx, srv.Addr())
	default:
		return fmt.Errorf("unsupported transport %q", srv.Transport)
	}
}

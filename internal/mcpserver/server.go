package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"openapi-mcp/internal/api"
	"openapi-mcp/pkg/logging"
)

const (
	// ServerName is reported to MCP clients during initialization.
	ServerName = "openapi-mcp"

	defaultEndpointLimit = 50
	maxEndpointLimit     = 200

	shutdownTimeout = 5 * time.Second
)

// Server exposes the API catalog and executor as MCP tools.
type Server struct {
	catalog   api.Catalog
	executor  api.Executor
	mcpServer *server.MCPServer

	// handlers holds the wrapped handler of every registered tool by name.
	handlers map[string]server.ToolHandlerFunc
}

// New creates a server and registers every tool.
func New(catalog api.Catalog, executor api.Executor, version string) *Server {
	s := &Server{
		catalog:  catalog,
		executor: executor,
		handlers: make(map[string]server.ToolHandlerFunc),
		mcpServer: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves MCP over stdin/stdout until ctx is done or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	logging.Info("MCPServer", "Serving MCP over stdio")
	stdio := server.NewStdioServer(s.mcpServer)
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// ServeHTTP serves MCP over streamable HTTP on addr until ctx is done.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	logging.Info("MCPServer", "Serving MCP over streamable-http on %s", addr)
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("streamable HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("MCPServer", err, "Error shutting down streamable HTTP server")
	}
	return nil
}

func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("list_apis",
		mcp.WithDescription("List configured APIs loaded from the YAML configuration."),
	), s.handleListAPIs)

	s.addTool(mcp.NewTool("list_api_endpoints",
		mcp.WithDescription("List endpoints from a specific API with optional filters."),
		mcp.WithString("apiName", mcp.Required(), mcp.Description("Configured API name (case-insensitive)")),
		mcp.WithString("method", mcp.Description("HTTP method filter, e.g. GET")),
		mcp.WithString("tag", mcp.Description("Only endpoints carrying this tag")),
		mcp.WithString("pathContains", mcp.Description("Substring the path must contain")),
		mcp.WithArray("search",
			mcp.Description("Case-insensitive terms; an endpoint matches when any term matches"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Page size, default %d, at most %d", defaultEndpointLimit, maxEndpointLimit)),
			mcp.Min(1),
		),
		mcp.WithString("cursor", mcp.Description("nextCursor from a previous page")),
	), s.handleListEndpoints)

	s.addTool(mcp.NewTool("get_api_endpoint",
		mcp.WithDescription("Get details for one endpoint in a specific API."),
		mcp.WithString("apiName", mcp.Required(), mcp.Description("Configured API name")),
		mcp.WithString("endpointId", mcp.Required(), mcp.Description("Endpoint id from list_api_endpoints")),
	), s.handleGetEndpoint)

	s.addTool(mcp.NewTool("get_api_schema",
		mcp.WithDescription("Get the full dereferenced API schema or a JSON pointer fragment."),
		mcp.WithString("apiName", mcp.Required(), mcp.Description("Configured API name")),
		mcp.WithString("pointer", mcp.Description("RFC 6901 JSON pointer, e.g. /components/schemas/Pet")),
	), s.handleGetSchema)

	s.addTool(mcp.NewTool("make_endpoint_request",
		mcp.WithDescription("Execute an HTTP request for an endpoint by endpointId."),
		mcp.WithString("apiName", mcp.Required(), mcp.Description("Configured API name")),
		mcp.WithString("endpointId", mcp.Required(), mcp.Description("Endpoint id from list_api_endpoints")),
		mcp.WithObject("pathParams", mcp.Description("Values for {placeholders} in the path")),
		mcp.WithObject("query", mcp.Description("Query parameters")),
		mcp.WithObject("headers", mcp.Description("Extra request headers")),
		mcp.WithObject("cookies", mcp.Description("Cookies to send")),
		mcp.WithAny("body", mcp.Description("Request body: string, object or array")),
		mcp.WithObject("files", mcp.Description("Files keyed by field name: {base64|text|path, contentType?, filename?}")),
		mcp.WithString("contentType", mcp.Description("Request content type override")),
		mcp.WithString("accept", mcp.Description("Accept header")),
		mcp.WithNumber("timeoutMs", mcp.Description("Per-attempt timeout in milliseconds"), mcp.Min(1)),
		mcp.WithObject("retry429",
			mcp.Description("429 retry policy override"),
			mcp.Properties(map[string]any{
				"maxRetries":        map[string]any{"type": "integer", "minimum": 0},
				"baseDelayMs":       map[string]any{"type": "integer", "minimum": 1},
				"maxDelayMs":        map[string]any{"type": "integer", "minimum": 1},
				"jitterRatio":       map[string]any{"type": "number", "minimum": 0, "maximum": 1},
				"respectRetryAfter": map[string]any{"type": "boolean"},
			}),
		),
	), s.handleMakeRequest)
}

// addTool registers handler with debug logging around every call.
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	name := tool.Name
	wrapped := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, req)
		if result != nil && result.IsError {
			logging.Debug("MCPServer", "Tool %s failed after %s", name, time.Since(start))
		} else {
			logging.Debug("MCPServer", "Tool %s completed in %s", name, time.Since(start))
		}
		return result, err
	}
	s.handlers[name] = wrapped
	s.mcpServer.AddTool(tool, wrapped)
}

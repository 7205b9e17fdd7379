// Package app provides application bootstrap and lifecycle management for
// openapi-mcp.
//
// # Bootstrap
//
// NewApplication performs the complete startup sequence:
//
//  1. Configures logging (text or JSON, always on stderr by default)
//  2. Loads and validates the YAML configuration file
//  3. Loads every API document concurrently into a registry
//  4. Wires the OAuth token cache, auth resolver, request executor and MCP server
//
// Any failure in these steps aborts startup with a CONFIG_ERROR or
// SCHEMA_ERROR naming the offending API.
//
// CLI commands that only inspect or call APIs use Load, which runs steps 2-4
// without touching the logger.
//
// # Serving
//
// Run serves MCP over the transport selected in the configuration file or by
// flag: stdio (default) or streamable-http. SIGINT and SIGTERM trigger a
// graceful shutdown.
//
// # Configuration reload
//
// With Watch enabled, a ConfigWatcher observes the configuration file and
// every local specPath it references. A burst of changes is debounced into a
// single reload that builds a fresh registry and swaps it into the
// LiveCatalog atomically:
//
//   - Calls already running keep the registry they started with
//   - A failed reload is logged and the previous registry stays in service
//   - The OAuth token cache is kept across reloads
package app

// Package logging provides a structured logging system for openapi-mcp with
// subsystem tagging and level filtering.
//
// The package is a thin layer over Go's standard slog package. Every message
// carries a subsystem identifier so that logs from the registry, the OAuth
// token cache and the request executor can be told apart.
//
// # Usage
//
//	// Logs go to stderr: stdout carries the MCP stdio protocol.
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Registry", "Loaded %d API(s)", n)
//	logging.Debug("Executor", "Retrying %s after %v", endpointID, delay)
//	logging.Warn("Config", "No servers declared for %s", name)
//	logging.Error("OAuth", err, "Token grant failed for %s", tokenURL)
//
// # Audit Logging
//
// Upstream calls that carry credentials and OAuth grants are recorded as
// audit events at INFO level with an [AUDIT] prefix:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "upstream_request",
//	    Outcome: "success",
//	    API:     "petstore",
//	    Target:  "listPets",
//	})
//
// Secret values are never passed to the logger; header echoes are redacted
// before they reach any log line.
package logging

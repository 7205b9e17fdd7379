// Package api holds the domain types shared by every openapi-mcp package.
//
// It sits at the bottom of the import graph: the registry, auth engine,
// executor and MCP front-end all speak in terms of APIDescriptor,
// EndpointDefinition, ResolvedAuthScheme and RequestExecutionResult, and
// report failures as *Error values carrying one of six stable kinds.
//
// # Errors
//
// Every error that leaves the core is an *Error:
//
//	return api.NewRequestError("Missing path parameter 'id'", nil)
//
// It serializes to {code, message, details} and never includes a stack trace
// or its cause. AsErrorResponse maps any error, structured or not, to that
// payload for tool callers.
//
// # Secrets
//
// Credential values travel as Secret, which prints and marshals as
// "<redacted>". Call Reveal only when writing the value onto the wire.
//
// # Interfaces
//
// Catalog and Executor are the two seams the MCP front-end depends on, so
// handlers can be tested against in-memory fakes.
package api

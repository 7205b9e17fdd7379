// Package mcpserver exposes the loaded API catalog as Model Context Protocol
// tools.
//
// Five tools are registered on an mcp-go server:
//
//	list_apis              every configured API with its base URL and schemes
//	list_api_endpoints     filtered, paginated endpoint summaries of one API
//	get_api_endpoint       parameters, body, responses and security of one endpoint
//	get_api_schema         the whole document or a JSON pointer fragment
//	make_endpoint_request  one authenticated HTTP call through the executor
//
// Arguments are decoded strictly: unknown keys and wrongly typed values come
// back as REQUEST_ERROR results naming the offending argument. Every failure
// is returned as an isError tool result whose text is the {code, message,
// details} payload, so the protocol layer only ever sees successful calls.
//
// The server can run over stdio or streamable HTTP:
//
//	srv := mcpserver.New(catalog, exec, version)
//	if err := srv.ServeStdio(ctx); err != nil {
//		return err
//	}
package mcpserver

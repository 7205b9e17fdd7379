// Package config loads the openapi-mcp YAML configuration.
//
// A configuration lists the APIs to expose and, optionally, how the MCP
// front-end is served:
//
//	version: 1
//	apis:
//	  - name: petstore
//	    specPath: ./petstore.yaml   # or specUrl, exactly one
//	    baseUrl: https://api.example.com
//	    timeoutMs: 30000
//	    headers: {X-Team: core}
//	    oauth2:
//	      tokenUrlOverride: https://auth.example.com/token
//	      scopes: [read]
//	      tokenEndpointAuthMethod: client_secret_post
//	    retry429: {maxRetries: 2, baseDelayMs: 250}
//	server:
//	  transport: stdio            # or streamable-http
//	  host: localhost
//	  port: 8090
//
// LoadConfig validates the whole document and reports every structural issue
// at once in a single CONFIG_ERROR. API names must be unique after env-name
// normalization, since two names that normalize alike would share credentials.
//
// Secrets never live in the config file; they come from environment variables
// (see package credentials).
package config

package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"openapi-mcp/internal/api"
)

// ok returns data as indented JSON text plus structured content.
func ok(data any) (*mcp.CallToolResult, error) {
	text, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fail(api.NewRequestError("Failed to encode result", nil).WithCause(err))
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(string(text))},
		StructuredContent: data,
	}, nil
}

// fail turns any error into an isError result carrying {code, message, details}.
// The Go error return stays nil so the protocol layer never sees a failure.
func fail(err error) (*mcp.CallToolResult, error) {
	payload := api.AsErrorResponse(err)
	text, mErr := json.MarshalIndent(payload, "", "  ")
	if mErr != nil {
		text = []byte(payload.Message)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(string(text))},
		StructuredContent: payload,
		IsError:           true,
	}, nil
}

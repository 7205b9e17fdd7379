package formatting

import (
	"fmt"

	"openapi-mcp/internal/mcpserver"
)

// JSONFormatter provides JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{options: options}
}

// FormatAPIs prints the list_apis payload.
func (f *JSONFormatter) FormatAPIs(apis []mcpserver.APISummary) error {
	return f.FormatData(map[string]any{"apis": apis})
}

// FormatEndpoints prints the list_api_endpoints payload.
func (f *JSONFormatter) FormatEndpoints(page mcpserver.EndpointPage) error {
	return f.FormatData(page)
}

// FormatData prints data as indented JSON.
func (f *JSONFormatter) FormatData(data any) error {
	_, err := fmt.Fprintln(f.options.writer(), PrettyJSON(data))
	return err
}

// Package formatting renders openapi-mcp results for the command line.
//
// Listings can be printed as rounded tables, JSON or YAML. JSON and YAML
// output carries exactly the payloads the MCP tools return, so scripts can
// consume either interchangeably.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"openapi-mcp/internal/mcpserver"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Output io.Writer // Defaults to stdout
	Color  bool      // Enable colored output
}

func (o Options) writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// Formatter renders CLI results.
type Formatter interface {
	FormatAPIs(apis []mcpserver.APISummary) error
	FormatEndpoints(page mcpserver.EndpointPage) error

	// FormatData renders any other result, such as an endpoint detail or a
	// request execution result.
	FormatData(data any) error
}

// New creates the formatter selected by options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}

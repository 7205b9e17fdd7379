package formatting

import (
	"fmt"

	"sigs.k8s.io/yaml"

	"openapi-mcp/internal/mcpserver"
)

// YAMLFormatter provides YAML output formatting. Values are converted
// through their JSON form, so field names match the JSON output.
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{options: options}
}

func (f *YAMLFormatter) FormatAPIs(apis []mcpserver.APISummary) error {
	return f.FormatData(map[string]any{"apis": apis})
}

func (f *YAMLFormatter) FormatEndpoints(page mcpserver.EndpointPage) error {
	return f.FormatData(page)
}

// FormatData prints data as YAML.
func (f *YAMLFormatter) FormatData(data any) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to format YAML: %w", err)
	}
	_, err = f.options.writer().Write(out)
	return err
}

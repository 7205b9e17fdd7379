package formatting

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"openapi-mcp/internal/mcpserver"
	pkgstrings "openapi-mcp/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options) Formatter {
	return &TableFormatter{options: options}
}

// FormatAPIs prints one row per API.
func (f *TableFormatter) FormatAPIs(apis []mcpserver.APISummary) error {
	if len(apis) == 0 {
		return f.printEmpty("No APIs configured")
	}

	t := f.createTable()
	t.AppendHeader(f.header("NAME", "TITLE", "VERSION", "BASE URL", "AUTH"))
	for _, a := range apis {
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, a.Name),
			a.Title,
			a.Version,
			a.BaseURL,
			strings.Join(a.AuthSchemes, ", "),
		})
	}
	t.Render()
	return f.printTotal(len(apis), "APIs")
}

// FormatEndpoints prints one row per endpoint and the cursor of the next page.
func (f *TableFormatter) FormatEndpoints(page mcpserver.EndpointPage) error {
	if len(page.Endpoints) == 0 {
		return f.printEmpty("No endpoints found")
	}

	t := f.createTable()
	t.AppendHeader(f.header("ENDPOINT ID", "METHOD", "PATH", "TAGS", "SUMMARY"))
	for _, e := range page.Endpoints {
		t.AppendRow(table.Row{
			f.paint(text.FgHiCyan, e.EndpointID),
			f.paint(methodColor(e.Method), strings.ToUpper(e.Method)),
			e.Path,
			strings.Join(e.Tags, ", "),
			pkgstrings.Truncate(e.Summary, pkgstrings.DefaultSummaryMaxLen),
		})
	}
	t.Render()

	if err := f.printTotal(len(page.Endpoints), "endpoints"); err != nil {
		return err
	}
	if page.NextCursor != "" {
		_, err := fmt.Fprintf(f.options.writer(), "%s --cursor %s\n", f.paint(text.FgHiBlue, "More results:"), page.NextCursor)
		return err
	}
	return nil
}

// FormatData has no tabular form for arbitrary values and prints JSON.
func (f *TableFormatter) FormatData(data any) error {
	_, err := fmt.Fprintln(f.options.writer(), PrettyJSON(data))
	return err
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.options.writer())
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.paint(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) paint(color text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return color.Sprint(s)
}

func (f *TableFormatter) printEmpty(message string) error {
	_, err := fmt.Fprintf(f.options.writer(), "%s\n", f.paint(text.FgYellow, message))
	return err
}

func (f *TableFormatter) printTotal(n int, noun string) error {
	_, err := fmt.Fprintf(f.options.writer(), "\n%s %d %s\n", f.paint(text.FgHiBlue, "Total:"), n, noun)
	return err
}

func methodColor(method string) text.Color {
	switch strings.ToLower(method) {
	case "get", "head", "options":
		return text.FgGreen
	case "post":
		return text.FgYellow
	case "delete":
		return text.FgRed
	default:
		return text.FgBlue
	}
}

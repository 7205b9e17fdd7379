package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"openapi-mcp/internal/formatting"
	"openapi-mcp/internal/mcpserver"
)

var (
	listOutputFormat string
	listNoColor      bool

	listMethod       string
	listTag          string
	listPathContains string
	listSearch       []string
	listLimit        int
	listCursor       string
)

// listCmd is the parent of the list subcommands.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured APIs or the endpoints of one API",
}

var listAPIsCmd = &cobra.Command{
	Use:   "apis",
	Short: "List configured APIs",
	Args:  cobra.NoArgs,
	RunE:  runListAPIs,
}

var listEndpointsCmd = &cobra.Command{
	Use:   "endpoints <api>",
	Short: "List the endpoints of an API",
	Long: `List the endpoints of an API, optionally filtered.

Examples:
  openapi-mcp list endpoints petstore
  openapi-mcp list endpoints petstore --method GET --tag pets
  openapi-mcp list endpoints petstore --search pet --search store -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runListEndpoints,
}

func newFormatter(cmd *cobra.Command, format string, noColor bool) (formatting.Formatter, error) {
	f, err := formatting.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return formatting.New(formatting.Options{
		Format: f,
		Output: cmd.OutOrStdout(),
		Color:  !noColor,
	}), nil
}

func runListAPIs(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(cmd, listOutputFormat, listNoColor)
	if err != nil {
		return err
	}
	services, err := loadServices(cmd)
	if err != nil {
		return err
	}
	return formatter.FormatAPIs(mcpserver.ListAPIs(services.Catalog))
}

func runListEndpoints(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(cmd, listOutputFormat, listNoColor)
	if err != nil {
		return err
	}
	services, err := loadServices(cmd)
	if err != nil {
		return err
	}

	desc, err := services.Catalog.API(args[0])
	if err != nil {
		return err
	}

	filtered := mcpserver.FilterEndpoints(desc, mcpserver.EndpointFilter{
		Method:       listMethod,
		Tag:          listTag,
		PathContains: listPathContains,
		Search:       listSearch,
	})

	offset, _ := strconv.Atoi(listCursor)
	start := min(max(offset, 0), len(filtered))
	end := len(filtered)
	if listLimit > 0 {
		end = min(start+listLimit, len(filtered))
	}

	page := mcpserver.EndpointPage{Endpoints: []mcpserver.EndpointSummary{}}
	for _, ep := range filtered[start:end] {
		page.Endpoints = append(page.Endpoints, mcpserver.Summarize(ep))
	}
	if end < len(filtered) {
		page.NextCursor = strconv.Itoa(end)
	}
	return formatter.FormatEndpoints(page)
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.AddCommand(listAPIsCmd)
	listCmd.AddCommand(listEndpointsCmd)

	listCmd.PersistentFlags().StringVarP(&listOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	listCmd.PersistentFlags().BoolVar(&listNoColor, "no-color", false, "Disable colored output")

	listEndpointsCmd.Flags().StringVar(&listMethod, "method", "", "Only endpoints with this HTTP method")
	listEndpointsCmd.Flags().StringVar(&listTag, "tag", "", "Only endpoints with this tag")
	listEndpointsCmd.Flags().StringVar(&listPathContains, "path-contains", "", "Only endpoints whose path contains this substring")
	listEndpointsCmd.Flags().StringArrayVar(&listSearch, "search", nil, "Case-insensitive search term (repeatable, any term matches)")
	listEndpointsCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum number of endpoints (0 lists all)")
	listEndpointsCmd.Flags().StringVar(&listCursor, "cursor", "", "Start at this cursor from a previous page")
}

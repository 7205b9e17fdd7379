package cmd

import (
	"github.com/spf13/cobra"

	"openapi-mcp/internal/mcpserver"
)

var (
	describeOutputFormat string
	schemaOutputFormat   string
)

var describeCmd = &cobra.Command{
	Use:   "describe <api> <endpointId>",
	Short: "Show the parameters, body, responses and security of an endpoint",
	Args:  cobra.ExactArgs(2),
	RunE:  runDescribe,
}

var schemaCmd = &cobra.Command{
	Use:   "schema <api> [pointer]",
	Short: "Print an API document or the fragment at a JSON pointer",
	Long: `Print an API document or the fragment at a JSON pointer.

Examples:
  openapi-mcp schema petstore
  openapi-mcp schema petstore /components/schemas/Pet -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSchema,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(cmd, describeOutputFormat, true)
	if err != nil {
		return err
	}
	services, err := loadServices(cmd)
	if err != nil {
		return err
	}

	desc, ep, err := services.Catalog.Endpoint(args[0], args[1])
	if err != nil {
		return err
	}
	return formatter.FormatData(mcpserver.Describe(desc, ep))
}

func runSchema(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(cmd, schemaOutputFormat, true)
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
	pointer := ""
	if len(args) == 2 {
		pointer = args[1]
	}
	fragment, err := mcpserver.SchemaAt(desc, pointer)
	if err != nil {
		return err
	}
	return formatter.FormatData(fragment.Schema)
}

func init() {
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(schemaCmd)

	describeCmd.Flags().StringVarP(&describeOutputFormat, "output", "o", "yaml", "Output format (yaml, json)")
	schemaCmd.Flags().StringVarP(&schemaOutputFormat, "output", "o", "yaml", "Output format (yaml, json)")
}

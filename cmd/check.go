package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/auth"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/formatting"
)

var (
	checkOutputFormat string
	checkStrict       bool
)

// apiReport is the check result of one API.
type apiReport struct {
	Name      string              `json:"name"`
	BaseURL   string              `json:"baseUrl"`
	Endpoints int                 `json:"endpoints"`
	Schemes   []auth.SchemeStatus `json:"schemes"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration, load every API and report credential status",
	Long: `Validate the configuration, load every API document and report, for each
security scheme, which credential variables are expected and which are unset.

No token endpoint or upstream API is contacted. With --strict the command fails
when a supported scheme is missing credentials.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := formatting.ParseFormat(checkOutputFormat)
	if err != nil {
		return err
	}
	services, err := loadServices(cmd)
	if err != nil {
		return err
	}

	reports := buildReports(services.Catalog.APIs(), services.Env)

	if format == formatting.FormatTable {
		renderReports(cmd, reports)
	} else {
		formatter := formatting.New(formatting.Options{Format: format, Output: cmd.OutOrStdout()})
		if err := formatter.FormatData(map[string]any{"apis": reports}); err != nil {
			return err
		}
	}

	if checkStrict {
		if missing := missingCredentials(reports); len(missing) > 0 {
			return api.NewAuthError("Missing credentials", map[string]any{"missingEnv": missing})
		}
	}
	return nil
}

func buildReports(apis []*api.APIDescriptor, env credentials.Env) []apiReport {
	reports := make([]apiReport, 0, len(apis))
	for _, desc := range apis {
		reports = append(reports, apiReport{
			Name:      desc.Name,
			BaseURL:   desc.BaseURL,
			Endpoints: len(desc.Endpoints),
			Schemes:   auth.CredentialStatus(desc, env),
		})
	}
	return reports
}

// missingCredentials lists the unset variables of every supported scheme.
func missingCredentials(reports []apiReport) []string {
	var missing []string
	for _, r := range reports {
		for _, s := range r.Schemes {
			if s.Supported {
				missing = append(missing, s.MissingEnv...)
			}
		}
	}
	return missing
}

func renderReports(cmd *cobra.Command, reports []apiReport) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"API", "ENDPOINTS", "SCHEME", "TYPE", "STATUS", "MISSING"})

	for _, r := range reports {
		if len(r.Schemes) == 0 {
			t.AppendRow(table.Row{r.Name, r.Endpoints, "-", "-", text.FgGreen.Sprint("no auth"), ""})
			continue
		}
		for _, s := range r.Schemes {
			t.AppendRow(table.Row{r.Name, r.Endpoints, s.Scheme, s.Type, schemeState(s), strings.Join(s.MissingEnv, ", ")})
		}
	}
	t.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s %d APIs loaded\n", text.FgHiBlue.Sprint("Total:"), len(reports))
}

func schemeState(s auth.SchemeStatus) string {
	switch {
	case !s.Supported:
		return text.FgYellow.Sprint("unsupported")
	case s.Ready():
		return text.FgGreen.Sprint("ready")
	default:
		return text.FgRed.Sprint("missing")
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkOutputFormat, "output", "o", "table", "Output format (table, json, yaml)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Fail when a supported scheme is missing credentials")
}

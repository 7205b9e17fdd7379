package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/app"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfig indicates an invalid configuration or API document.
	ExitCodeConfig = 2
	// ExitCodeAuth indicates credentials could not be resolved.
	ExitCodeAuth = 3
)

var (
	// configPath is the configuration file shared by every command.
	configPath string

	// debug enables debug logging.
	debug bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "openapi-mcp",
	Short: "Expose OpenAPI described HTTP APIs as MCP tools",
	Long: `openapi-mcp loads OpenAPI 3 (and Swagger 2) documents named in a YAML
configuration file and lets MCP clients discover and call their endpoints.

Credentials are read from the environment, never from the configuration:
  <API>_<SCHEME>_API_KEY, <API>_<SCHEME>_TOKEN, <API>_<SCHEME>_USERNAME/_PASSWORD,
  <API>_<SCHEME>_CLIENT_ID/_CLIENT_SECRET and friends.

The same catalog can be used from the command line with list, describe and call.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "openapi-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps structured errors to semantic exit codes for scripting.
func getExitCode(err error) int {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return ExitCodeError
	}
	switch apiErr.Kind {
	case api.KindConfig, api.KindSchema:
		return ExitCodeConfig
	case api.KindAuth:
		return ExitCodeAuth
	default:
		return ExitCodeError
	}
}

// newAppConfig builds the application config from the shared flags.
func newAppConfig(cmd *cobra.Command) *app.Config {
	cfg := app.NewConfig(debug, configPath)
	cfg.LogOutput = cmd.ErrOrStderr()
	cfg.Version = GetVersion()
	return cfg
}

// loadServices loads the configuration and every API for a one-shot command.
func loadServices(cmd *cobra.Command) (*app.Services, error) {
	cfg := newAppConfig(cmd)
	app.InitLogging(cfg)
	services, err := app.Load(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return services, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Configuration file (default: $OPENAPI_MCP_CONFIG or ./openapi-mcp.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
}

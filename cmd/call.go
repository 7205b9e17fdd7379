package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"openapi-mcp/internal/api"
)

var (
	callPathParams  []string
	callQuery       []string
	callHeaders     []string
	callCookies     []string
	callFiles       []string
	callBody        string
	callBodyFile    string
	callContentType string
	callAccept      string
	callTimeoutMs   int
	callMaxRetries  int
	callQuiet       bool
	callOutput      string
)

var callCmd = &cobra.Command{
	Use:   "call <api> <endpointId>",
	Short: "Execute one request against an endpoint",
	Long: `Execute one request against an endpoint and print the execution result.

Key/value flags take key=value and may be repeated. A repeated --query key
becomes an array. --body is parsed as JSON when it is valid JSON and sent as
text otherwise. --body-file sends the raw file bytes unless the file ends in
.json. --file field=path attaches a file as a multipart field.

Examples:
  openapi-mcp call petstore getPetById --path petId=7
  openapi-mcp call petstore findPets --query tags=dog --query tags=cat
  openapi-mcp call petstore addPet --body '{"name":"rex"}'
  openapi-mcp call files upload --file file=./photo.png --body '{"title":"me"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	formatter, err := newFormatter(cmd, callOutput, true)
	if err != nil {
		return err
	}
	in, err := buildCallInput(cmd, args[0], args[1])
	if err != nil {
		return err
	}

	services, err := loadServices(cmd)
	if err != nil {
		return err
	}

	var s *spinner.Spinner
	if !callQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = fmt.Sprintf(" Calling %s %s...", args[0], args[1])
		s.Start()
	}

	result, err := services.Executor.Execute(cmd.Context(), in)

	if s != nil {
		s.Stop()
	}
	if err != nil {
		if !callQuiet {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", text.FgRed.Sprint("Request failed"))
		}
		return err
	}
	return formatter.FormatData(result)
}

// buildCallInput turns the call flags into a CallInput.
func buildCallInput(cmd *cobra.Command, apiName, endpointID string) (api.CallInput, error) {
	in := api.CallInput{
		APIName:     apiName,
		EndpointID:  endpointID,
		ContentType: callContentType,
		Accept:      callAccept,
	}

	var err error
	if in.PathParams, err = parseKeyValues("path", callPathParams); err != nil {
		return in, err
	}
	if in.Query, err = parseKeyValues("query", callQuery); err != nil {
		return in, err
	}
	if in.Headers, err = parseStringPairs("header", callHeaders); err != nil {
		return in, err
	}
	if in.Cookies, err = parseStringPairs("cookie", callCookies); err != nil {
		return in, err
	}

	files, err := parseStringPairs("file", callFiles)
	if err != nil {
		return in, err
	}
	if len(files) > 0 {
		in.Files = make(map[string]api.FileDescriptor, len(files))
		for field, path := range files {
			in.Files[field] = api.FileDescriptor{Path: path}
		}
	}

	switch {
	case callBody != "" && callBodyFile != "":
		return in, fmt.Errorf("--body and --body-file are mutually exclusive")
	case callBody != "":
		in.Body = parseBody(callBody)
	case callBodyFile != "":
		data, err := os.ReadFile(callBodyFile)
		if err != nil {
			return in, fmt.Errorf("failed to read body file: %w", err)
		}
		if strings.HasSuffix(strings.ToLower(callBodyFile), ".json") {
			var v any
			if err := json.Unmarshal(data, &v); err != nil {
				return in, fmt.Errorf("body file %s is not valid JSON: %w", callBodyFile, err)
			}
			in.Body = v
		} else {
			in.Body = data
		}
	}

	if cmd.Flags().Changed("timeout-ms") {
		if callTimeoutMs <= 0 {
			return in, fmt.Errorf("--timeout-ms must be positive")
		}
		in.TimeoutMs = &callTimeoutMs
	}
	if cmd.Flags().Changed("max-retries") {
		if callMaxRetries < 0 {
			return in, fmt.Errorf("--max-retries must not be negative")
		}
		in.Retry429 = &api.RetryOverride{MaxRetries: &callMaxRetries}
	}
	return in, nil
}

// parseBody returns the JSON value of s, or s itself when it is not JSON.
func parseBody(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// parseKeyValues parses key=value pairs. A repeated key collects its values
// into an array.
func parseKeyValues(flag string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(flag, pair)
		if err != nil {
			return nil, err
		}
		switch existing := out[key].(type) {
		case nil:
			out[key] = value
		case []any:
			out[key] = append(existing, value)
		default:
			out[key] = []any{existing, value}
		}
	}
	return out, nil
}

// parseStringPairs parses key=value pairs; the last value of a key wins.
func parseStringPairs(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, err := splitPair(flag, pair)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func splitPair(flag, pair string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid --%s value %q (expected key=value)", flag, pair)
	}
	return key, value, nil
}

func init() {
	rootCmd.AddCommand(callCmd)

	f := callCmd.Flags()
	f.StringArrayVar(&callPathParams, "path", nil, "Path parameter key=value (repeatable)")
	f.StringArrayVar(&callQuery, "query", nil, "Query parameter key=value (repeatable)")
	f.StringArrayVar(&callHeaders, "header", nil, "Request header name=value (repeatable)")
	f.StringArrayVar(&callCookies, "cookie", nil, "Cookie name=value (repeatable)")
	f.StringArrayVar(&callFiles, "file", nil, "Multipart file field=path (repeatable)")
	f.StringVar(&callBody, "body", "", "Request body, JSON or text")
	f.StringVar(&callBodyFile, "body-file", "", "Read the request body from a file")
	f.StringVar(&callContentType, "content-type", "", "Request content type")
	f.StringVar(&callAccept, "accept", "", "Accept header")
	f.IntVar(&callTimeoutMs, "timeout-ms", 0, "Per-attempt timeout in milliseconds")
	f.IntVar(&callMaxRetries, "max-retries", 0, "Retries on 429 responses")
	f.BoolVarP(&callQuiet, "quiet", "q", false, "Suppress the progress spinner")
	f.StringVarP(&callOutput, "output", "o", "json", "Output format (json, yaml)")
}

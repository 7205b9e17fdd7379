package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"openapi-mcp/internal/api"
	"openapi-mcp/pkg/logging"
)

// Loader fetches API documents from files or http(s) URLs and returns them as
// OpenAPI 3 documents with every $ref resolved.
type Loader struct {
	httpClient *http.Client
	validate   bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for specUrl downloads.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		l.httpClient = c
	}
}

// WithValidation makes the loader run kin-openapi's document validation and
// log what it finds. Validation failures never reject a document.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) {
		l.validate = enabled
	}
}

// NewLoader creates a loader with a 30s download timeout.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Document is a loaded API document.
type Document struct {
	Spec          *openapi3.T
	SecurityOrder SecurityOrder
}

// Load reads the document at source (a path or an http(s) URL) for the named API.
// Swagger 2.0 documents are upgraded. The result is guaranteed to declare an
// OpenAPI version with major >= 3.
func (l *Loader) Load(ctx context.Context, apiName, source string) (*Document, error) {
	data, location, err := l.read(ctx, source)
	if err != nil {
		return nil, parseError(apiName, source, err)
	}

	var doc *openapi3.T
	if isSwagger2(data) {
		logging.Debug("OpenAPI", "Upgrading Swagger 2.0 document for %s", apiName)
		doc, err = upgradeSwagger2(data)
		if err != nil {
			return nil, api.NewSchemaError(fmt.Sprintf("Failed to convert Swagger 2.0 to OpenAPI 3.0 for '%s'", apiName), map[string]any{
				"apiName": apiName,
				"cause":   err.Error(),
			}).WithCause(err)
		}
	} else {
		loader := openapi3.NewLoader()
		loader.IsExternalRefsAllowed = true
		loader.Context = ctx
		doc, err = loader.LoadFromDataWithPath(data, location)
		if err != nil {
			return nil, parseError(apiName, source, err)
		}
	}

	if doc.OpenAPI == "" {
		return nil, api.NewSchemaError(fmt.Sprintf("OpenAPI 'openapi' field is missing in '%s'", apiName), nil)
	}
	if err := CheckVersion(doc.OpenAPI); err != nil {
		return nil, err
	}

	if l.validate {
		if verr := doc.Validate(ctx); verr != nil {
			logging.Warn("OpenAPI", "Document for %s does not validate: %v", apiName, verr)
		}
	}
	return &Document{Spec: doc, SecurityOrder: ReadSecurityOrder(data)}, nil
}

func parseError(apiName, source string, err error) *api.Error {
	return api.NewSchemaError(fmt.Sprintf("Failed to parse OpenAPI schema for '%s'", apiName), map[string]any{
		"apiName":    apiName,
		"specSource": source,
		"cause":      err.Error(),
	}).WithCause(err)
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, *url.URL, error) {
	if IsURL(source) {
		u, err := url.Parse(source)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid URL: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, nil, err
		}
		resp, err := l.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, nil, fmt.Errorf("HTTP error: %s", resp.Status)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read response: %w", err)
		}
		return data, u, nil
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, err
	}
	return data, &url.URL{Path: filepath.ToSlash(abs)}, nil
}

// IsURL reports whether source is an http(s) URL rather than a file path.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:[-+].*)?$`)

// CheckVersion accepts MAJOR.MINOR.PATCH[-suffix] with MAJOR >= 3.
func CheckVersion(version string) error {
	m := versionPattern.FindStringSubmatch(version)
	if m == nil {
		return api.NewSchemaError(fmt.Sprintf("Unsupported OpenAPI version format: %s", version), nil)
	}
	major, err := strconv.Atoi(m[1])
	if err != nil || major < 3 {
		return api.NewSchemaError(fmt.Sprintf("OpenAPI version must be 3.x (received %s)", version), nil)
	}
	return nil
}

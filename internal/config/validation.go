package config

import (
	"fmt"
	"net/url"
	"strings"

	"openapi-mcp/internal/api"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string) {
	*ve = append(*ve, ValidationError{Field: field, Message: message})
}

// AsConfigError converts the collection into one CONFIG_ERROR carrying every issue.
func (ve ValidationErrors) AsConfigError() *api.Error {
	return api.NewConfigError("Config validation failed", map[string]any{"issues": []ValidationError(ve)})
}

// Validate checks the structure of a parsed configuration. File system checks
// (spec files existing) happen in LoadConfig.
func Validate(cfg Config) ValidationErrors {
	var errs ValidationErrors

	if cfg.Version != 1 {
		errs.Add("version", "must be 1")
	}
	if len(cfg.APIs) == 0 {
		errs.Add("apis", "must contain at least one API")
	}

	for i, a := range cfg.APIs {
		validateAPI(&errs, fmt.Sprintf("apis[%d]", i), a)
	}

	switch cfg.Server.Transport {
	case "", TransportStdio, TransportStreamableHTTP:
	default:
		errs.Add("server.transport", fmt.Sprintf("must be one of: %s, %s", TransportStdio, TransportStreamableHTTP))
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535")
	}

	return errs
}

func validateAPI(errs *ValidationErrors, field string, a api.APIConfig) {
	if strings.TrimSpace(a.Name) == "" {
		errs.Add(field+".name", "is required")
	}

	if (a.SpecPath == "") == (a.SpecURL == "") {
		errs.Add(field, "Exactly one of specPath or specUrl must be provided")
	}
	if a.SpecURL != "" {
		validateURL(errs, field+".specUrl", a.SpecURL)
	}
	if a.BaseURL != "" {
		validateURL(errs, field+".baseUrl", a.BaseURL)
	}
	if a.TimeoutMs < 0 {
		errs.Add(field+".timeoutMs", "must be a positive integer")
	}

	if o := a.OAuth2; o != nil {
		if o.TokenURLOverride != "" {
			validateURL(errs, field+".oauth2.tokenUrlOverride", o.TokenURLOverride)
		}
		for j, scope := range o.Scopes {
			if scope == "" {
				errs.Add(fmt.Sprintf("%s.oauth2.scopes[%d]", field, j), "must not be empty")
			}
		}
		if o.TokenEndpointAuthMethod != "" && !o.TokenEndpointAuthMethod.Valid() {
			errs.Add(field+".oauth2.tokenEndpointAuthMethod",
				fmt.Sprintf("must be one of: %s, %s", api.TokenAuthClientSecretBasic, api.TokenAuthClientSecretPost))
		}
	}

	if r := a.Retry429; r != nil {
		if r.MaxRetries != nil && *r.MaxRetries < 0 {
			errs.Add(field+".retry429.maxRetries", "must be >= 0")
		}
		if r.BaseDelayMs != nil && *r.BaseDelayMs <= 0 {
			errs.Add(field+".retry429.baseDelayMs", "must be a positive integer")
		}
		if r.MaxDelayMs != nil && *r.MaxDelayMs <= 0 {
			errs.Add(field+".retry429.maxDelayMs", "must be a positive integer")
		}
		if r.JitterRatio != nil && (*r.JitterRatio < 0 || *r.JitterRatio > 1) {
			errs.Add(field+".retry429.jitterRatio", "must be between 0 and 1")
		}
	}
}

func validateURL(errs *ValidationErrors, field, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add(field, "must be a valid URL")
	}
}

package mcpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"openapi-mcp/internal/api"
)

// decodeArgs decodes tool arguments into target and rejects unknown keys.
func decodeArgs(args any, target any) error {
	if args == nil {
		args = map[string]any{}
	}
	data, err := json.Marshal(args)
	if err != nil {
		return argumentError("arguments", err.Error())
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return argumentError(argumentPath(err), err.Error())
	}
	return nil
}

// argumentPath names the offending argument of a decode error when it can.
func argumentPath(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr.Field
	}
	if field, found := strings.CutPrefix(err.Error(), "json: unknown field "); found {
		return strings.Trim(field, `"`)
	}
	return "arguments"
}

func argumentError(path, message string) *api.Error {
	return api.NewRequestError(fmt.Sprintf("%s: %s", path, message), map[string]any{
		"issues": []map[string]any{{"path": path, "message": message}},
	})
}

func requireNonEmpty(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return argumentError(name, "must not be empty")
	}
	return nil
}

// toStringMap stringifies header or cookie values and drops nils.
func toStringMap(values map[string]any) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			data, err := json.Marshal(t)
			if err != nil {
				out[k] = fmt.Sprint(t)
				continue
			}
			out[k] = string(data)
		}
	}
	return out
}

type listEndpointsArgs struct {
	APIName      string   `json:"apiName"`
	Method       string   `json:"method"`
	Tag          string   `json:"tag"`
	PathContains string   `json:"pathContains"`
	Search       []string `json:"search"`
	Limit        *int     `json:"limit"`
	Cursor       string   `json:"cursor"`
}

type endpointArgs struct {
	APIName    string `json:"apiName"`
	EndpointID string `json:"endpointId"`
}

type schemaArgs struct {
	APIName string  `json:"apiName"`
	Pointer *string `json:"pointer"`
}

type requestArgs struct {
	APIName     string                        `json:"apiName"`
	EndpointID  string                        `json:"endpointId"`
	PathParams  map[string]any                `json:"pathParams"`
	Query       map[string]any                `json:"query"`
	Headers     map[string]any                `json:"headers"`
	Cookies     map[string]any                `json:"cookies"`
	Body        any                           `json:"body"`
	Files       map[string]api.FileDescriptor `json:"files"`
	ContentType string                        `json:"contentType"`
	Accept      string                        `json:"accept"`
	TimeoutMs   *int                          `json:"timeoutMs"`
	Retry429    *api.RetryOverride            `json:"retry429"`
}

func (a requestArgs) validate() error {
	if err := requireNonEmpty("apiName", a.APIName); err != nil {
		return err
	}
	if err := requireNonEmpty("endpointId", a.EndpointID); err != nil {
		return err
	}
	if a.TimeoutMs != nil && *a.TimeoutMs <= 0 {
		return argumentError("timeoutMs", "must be a positive integer")
	}
	if r := a.Retry429; r != nil {
		switch {
		case r.MaxRetries != nil && *r.MaxRetries < 0:
			return argumentError("retry429.maxRetries", "must be a non-negative integer")
		case r.BaseDelayMs != nil && *r.BaseDelayMs <= 0:
			return argumentError("retry429.baseDelayMs", "must be a positive integer")
		case r.MaxDelayMs != nil && *r.MaxDelayMs <= 0:
			return argumentError("retry429.maxDelayMs", "must be a positive integer")
		case r.JitterRatio != nil && (*r.JitterRatio < 0 || *r.JitterRatio > 1):
			return argumentError("retry429.jitterRatio", "must be between 0 and 1")
		}
	}
	return nil
}

func (a requestArgs) callInput() api.CallInput {
	return api.CallInput{
		APIName:     a.APIName,
		EndpointID:  a.EndpointID,
		PathParams:  a.PathParams,
		Query:       a.Query,
		Headers:     toStringMap(a.Headers),
		Cookies:     toStringMap(a.Cookies),
		Body:        a.Body,
		Files:       a.Files,
		ContentType: a.ContentType,
		Accept:      a.Accept,
		TimeoutMs:   a.TimeoutMs,
		Retry429:    a.Retry429,
	}
}

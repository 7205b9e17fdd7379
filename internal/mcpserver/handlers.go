package mcpserver

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/mark3labs/mcp-go/mcp"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/openapi"
	pkgstrings "openapi-mcp/pkg/strings"
)

// APISummary is one entry of list_apis.
type APISummary struct {
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Version     string   `json:"version,omitempty"`
	BaseURL     string   `json:"baseUrl"`
	SpecPath    string   `json:"specPath"`
	AuthSchemes []string `json:"authSchemes"`
}

// EndpointSummary is one entry of list_api_endpoints.
type EndpointSummary struct {
	EndpointID  string   `json:"endpointId"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	OperationID string   `json:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags"`
}

// EndpointPage is the result of list_api_endpoints.
type EndpointPage struct {
	Endpoints  []EndpointSummary `json:"endpoints"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

// ParameterDetail describes one declared parameter.
type ParameterDetail struct {
	Name        string           `json:"name"`
	In          string           `json:"in"`
	Required    bool             `json:"required"`
	Description string           `json:"description,omitempty"`
	Style       string           `json:"style,omitempty"`
	Explode     *bool            `json:"explode,omitempty"`
	Schema      *openapi3.Schema `json:"schema,omitempty"`
}

// RequestBodyDetail summarizes an operation's request body.
type RequestBodyDetail struct {
	Required     bool     `json:"required"`
	ContentTypes []string `json:"contentTypes"`
}

// EndpointDetail is the result of get_api_endpoint.
type EndpointDetail struct {
	EndpointID  string                        `json:"endpointId"`
	Method      string                        `json:"method"`
	Path        string                        `json:"path"`
	OperationID string                        `json:"operationId,omitempty"`
	Summary     string                        `json:"summary,omitempty"`
	Description string                        `json:"description,omitempty"`
	Tags        []string                      `json:"tags"`
	Parameters  []ParameterDetail             `json:"parameters"`
	RequestBody RequestBodyDetail             `json:"requestBody"`
	Responses   *openapi3.Responses           `json:"responses,omitempty"`
	Security    openapi3.SecurityRequirements `json:"security"`
}

// SchemaFragment is the result of get_api_schema.
type SchemaFragment struct {
	APIName string `json:"apiName"`
	Pointer string `json:"pointer"`
	Schema  any    `json:"schema"`
}

// ListAPIs summarizes every loaded API.
func ListAPIs(catalog api.Catalog) []APISummary {
	apis := catalog.APIs()
	out := make([]APISummary, 0, len(apis))
	for _, d := range apis {
		schemes := d.AuthSchemeNames
		if schemes == nil {
			schemes = []string{}
		}
		out = append(out, APISummary{
			Name:        d.Name,
			Title:       d.Title(),
			Version:     d.Version(),
			BaseURL:     d.BaseURL,
			SpecPath:    d.Config.Source(),
			AuthSchemes: schemes,
		})
	}
	return out
}

// EndpointFilter selects endpoints for list_api_endpoints.
type EndpointFilter struct {
	Method       string
	Tag          string
	PathContains string
	Search       []string
}

func (f EndpointFilter) matches(ep *api.EndpointDefinition) bool {
	if f.Method != "" && !strings.EqualFold(ep.Method, f.Method) {
		return false
	}
	if f.Tag != "" && !containsString(ep.Tags, f.Tag) {
		return false
	}
	if f.PathContains != "" && !strings.Contains(ep.Path, f.PathContains) {
		return false
	}
	if hasSearchTerms(f.Search) {
		haystack := append([]string{ep.EndpointID, ep.Method, ep.Path, ep.OperationID, ep.Summary, ep.Description}, ep.Tags...)
		if !pkgstrings.ContainsAnyFold(haystack, f.Search) {
			return false
		}
	}
	return true
}

// FilterEndpoints returns the endpoints of desc that match f, in index order.
func FilterEndpoints(desc *api.APIDescriptor, f EndpointFilter) []*api.EndpointDefinition {
	var out []*api.EndpointDefinition
	for _, ep := range desc.Endpoints {
		if f.matches(ep) {
			out = append(out, ep)
		}
	}
	return out
}

// Summarize renders an endpoint for listings.
func Summarize(ep *api.EndpointDefinition) EndpointSummary {
	tags := ep.Tags
	if tags == nil {
		tags = []string{}
	}
	return EndpointSummary{
		EndpointID:  ep.EndpointID,
		Method:      ep.Method,
		Path:        ep.Path,
		OperationID: ep.OperationID,
		Summary:     ep.Summary,
		Tags:        tags,
	}
}

// Describe renders the full detail of one endpoint.
func Describe(desc *api.APIDescriptor, ep *api.EndpointDefinition) EndpointDetail {
	detail := EndpointDetail{
		EndpointID:  ep.EndpointID,
		Method:      ep.Method,
		Path:        ep.Path,
		OperationID: ep.OperationID,
		Summary:     ep.Summary,
		Description: ep.Description,
		Tags:        ep.Tags,
		Parameters:  []ParameterDetail{},
		RequestBody: RequestBodyDetail{ContentTypes: []string{}},
		Security:    openapi3.SecurityRequirements{},
	}
	if detail.Tags == nil {
		detail.Tags = []string{}
	}

	for _, p := range ep.Parameters() {
		pd := ParameterDetail{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required,
			Description: p.Description,
			Style:       p.Style,
			Explode:     p.Explode,
		}
		if p.Schema != nil {
			pd.Schema = p.Schema.Value
		}
		detail.Parameters = append(detail.Parameters, pd)
	}

	if op := ep.Operation; op != nil {
		if op.RequestBody != nil && op.RequestBody.Value != nil {
			body := op.RequestBody.Value
			detail.RequestBody.Required = body.Required
			for ct := range body.Content {
				detail.RequestBody.ContentTypes = append(detail.RequestBody.ContentTypes, ct)
			}
			sort.Strings(detail.RequestBody.ContentTypes)
		}
		detail.Responses = op.Responses

		switch {
		case op.Security != nil:
			detail.Security = *op.Security
		case desc.Document != nil && desc.Document.Security != nil:
			detail.Security = desc.Document.Security
		}
	}
	return detail
}

func (s *Server) handleListAPIs(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := decodeArgs(req.GetArguments(), &struct{}{}); err != nil {
		return fail(err)
	}
	return ok(map[string]any{"apis": ListAPIs(s.catalog)})
}

func (s *Server) handleListEndpoints(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args listEndpointsArgs
	if err := decodeArgs(req.GetArguments(), &args); err != nil {
		return fail(err)
	}
	if err := requireNonEmpty("apiName", args.APIName); err != nil {
		return fail(err)
	}
	if args.Limit != nil && *args.Limit <= 0 {
		return fail(argumentError("limit", "must be a positive integer"))
	}

	desc, err := s.catalog.API(args.APIName)
	if err != nil {
		return fail(err)
	}

	limit := defaultEndpointLimit
	if args.Limit != nil {
		limit = min(*args.Limit, maxEndpointLimit)
	}
	offset := parseCursor(args.Cursor)

	filtered := FilterEndpoints(desc, EndpointFilter{
		Method:       args.Method,
		Tag:          args.Tag,
		PathContains: args.PathContains,
		Search:       args.Search,
	})

	page := EndpointPage{Endpoints: []EndpointSummary{}}
	start := min(offset, len(filtered))
	end := min(start+limit, len(filtered))
	for _, ep := range filtered[start:end] {
		page.Endpoints = append(page.Endpoints, Summarize(ep))
	}
	if end < len(filtered) {
		page.NextCursor = strconv.Itoa(end)
	}
	return ok(page)
}

func (s *Server) handleGetEndpoint(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args endpointArgs
	if err := decodeArgs(req.GetArguments(), &args); err != nil {
		return fail(err)
	}
	if err := requireNonEmpty("apiName", args.APIName); err != nil {
		return fail(err)
	}
	if err := requireNonEmpty("endpointId", args.EndpointID); err != nil {
		return fail(err)
	}

	desc, ep, err := s.catalog.Endpoint(args.APIName, args.EndpointID)
	if err != nil {
		return fail(err)
	}
	return ok(Describe(desc, ep))
}

func (s *Server) handleGetSchema(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args schemaArgs
	if err := decodeArgs(req.GetArguments(), &args); err != nil {
		return fail(err)
	}
	if err := requireNonEmpty("apiName", args.APIName); err != nil {
		return fail(err)
	}

	desc, err := s.catalog.API(args.APIName)
	if err != nil {
		return fail(err)
	}

	pointer := ""
	if args.Pointer != nil {
		pointer = *args.Pointer
	}
	fragment, err := SchemaAt(desc, pointer)
	if err != nil {
		return fail(err)
	}
	return ok(fragment)
}

// SchemaAt returns the document fragment addressed by pointer.
func SchemaAt(desc *api.APIDescriptor, pointer string) (*SchemaFragment, error) {
	tree, err := openapi.ToJSONTree(desc.Document)
	if err != nil {
		return nil, api.NewSchemaError("Cannot serialize API document", map[string]any{"apiName": desc.Name}).WithCause(err)
	}
	node, err := openapi.Lookup(tree, pointer)
	if err != nil {
		return nil, err
	}
	return &SchemaFragment{APIName: desc.Name, Pointer: pointer, Schema: node}, nil
}

func (s *Server) handleMakeRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args requestArgs
	if err := decodeArgs(req.GetArguments(), &args); err != nil {
		return fail(err)
	}
	if err := args.validate(); err != nil {
		return fail(err)
	}

	result, err := s.executor.Execute(ctx, args.callInput())
	if err != nil {
		return fail(err)
	}
	return ok(result)
}

// parseCursor reads a numeric offset; anything else starts from the top.
func parseCursor(cursor string) int {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func hasSearchTerms(terms []string) bool {
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			return true
		}
	}
	return false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

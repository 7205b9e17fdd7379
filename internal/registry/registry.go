package registry

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/sync/errgroup"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/config"
	"openapi-mcp/internal/credentials"
	"openapi-mcp/internal/openapi"
	"openapi-mcp/pkg/logging"
)

// maxConcurrentLoads bounds how many documents are fetched at once.
const maxConcurrentLoads = 4

// Registry holds every loaded API. It is immutable once built and safe for
// concurrent reads.
type Registry struct {
	apis   []*api.APIDescriptor
	byName map[string]*api.APIDescriptor
}

// Load reads every API document named in cfg concurrently and builds a registry.
// When several APIs fail, the error of the first one in config order is returned.
func Load(ctx context.Context, cfg config.Config, env credentials.Env, loader *openapi.Loader) (*Registry, error) {
	descs := make([]*api.APIDescriptor, len(cfg.APIs))
	errs := make([]error, len(cfg.APIs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, apiCfg := range cfg.APIs {
		g.Go(func() error {
			loaded, err := loader.Load(gctx, apiCfg.Name, apiCfg.Source())
			if err == nil {
				descs[i], err = Describe(apiCfg, loaded, env)
			}
			errs[i] = err
			return err
		})
	}

	if err := g.Wait(); err != nil {
		for i, e := range errs {
			if e != nil {
				logging.Error("Registry", e, "Failed to load API %s", cfg.APIs[i].Name)
				return nil, e
			}
		}
		return nil, err
	}

	reg := New(descs...)
	logging.Info("Registry", "Loaded %d API(s)", len(descs))
	return reg, nil
}

// New builds a registry from already described APIs.
func New(descs ...*api.APIDescriptor) *Registry {
	r := &Registry{byName: make(map[string]*api.APIDescriptor, len(descs))}
	for _, d := range descs {
		r.apis = append(r.apis, d)
		r.byName[api.NormalizeName(d.Name)] = d
	}
	return r
}

// Describe turns a loaded document into an APIDescriptor: it indexes the
// endpoints, resolves the base URL and collects the security scheme names.
func Describe(apiCfg api.APIConfig, loaded *openapi.Document, env credentials.Env) (*api.APIDescriptor, error) {
	doc := loaded.Spec
	idx, err := openapi.BuildIndex(doc)
	if err != nil {
		if apiErr, ok := err.(*api.Error); ok {
			apiErr.WithDetail("apiName", apiCfg.Name)
		}
		return nil, err
	}

	for _, ep := range idx.Endpoints {
		ep.SecurityOrder = loaded.SecurityOrder.Operations[openapi.OperationKey(ep.Method, ep.Path)]
	}

	baseURL, err := ResolveBaseURL(apiCfg, doc, env)
	if err != nil {
		return nil, err
	}

	var schemeNames []string
	if doc.Components != nil {
		for name := range doc.Components.SecuritySchemes {
			schemeNames = append(schemeNames, name)
		}
		sort.Strings(schemeNames)
	}

	logging.Debug("Registry", "API %s: %d endpoint(s), base URL %s", apiCfg.Name, len(idx.Endpoints), baseURL)
	return &api.APIDescriptor{
		Name:            apiCfg.Name,
		Document:        doc,
		BaseURL:         baseURL,
		Endpoints:       idx.Endpoints,
		EndpointByID:    idx.ByID,
		AuthSchemeNames: schemeNames,
		Config:          apiCfg,
		SecurityOrder:   loaded.SecurityOrder.Document,
	}, nil
}

// ResolveBaseURL picks <API>_BASE_URL, then the configured baseUrl, then the
// document's first server. Server variables take their default values and a
// relative server URL is resolved against a specUrl.
func ResolveBaseURL(apiCfg api.APIConfig, doc *openapi3.T, env credentials.Env) (string, error) {
	if u, ok := credentials.NewReader(env, apiCfg.Name).BaseURL(); ok {
		return u, nil
	}
	if apiCfg.BaseURL != "" {
		return apiCfg.BaseURL, nil
	}
	if doc != nil && len(doc.Servers) > 0 && doc.Servers[0] != nil && doc.Servers[0].URL != "" {
		return serverURL(doc.Servers[0], apiCfg.SpecURL), nil
	}
	return "", api.NewConfigError(fmt.Sprintf("No base URL found for API '%s'", apiCfg.Name), map[string]any{
		"resolutionOrder": []string{
			"env:<API>_BASE_URL",
			"config.baseUrl",
			"openapi.servers[0].url",
		},
	})
}

func serverURL(server *openapi3.Server, specURL string) string {
	u := server.URL
	for name, variable := range server.Variables {
		if variable == nil {
			continue
		}
		u = strings.ReplaceAll(u, "{"+name+"}", variable.Default)
	}

	if specURL != "" && !strings.Contains(u, "://") {
		base, err := url.Parse(specURL)
		ref, refErr := url.Parse(u)
		if err == nil && refErr == nil {
			return base.ResolveReference(ref).String()
		}
	}
	return u
}

// APIs returns every API in configuration order.
func (r *Registry) APIs() []*api.APIDescriptor {
	return r.apis
}

// API looks up an API by name, case-insensitively.
func (r *Registry) API(name string) (*api.APIDescriptor, error) {
	d, ok := r.byName[api.NormalizeName(name)]
	if !ok {
		return nil, api.NewAPINotFoundError(name)
	}
	return d, nil
}

// Endpoint looks up an endpoint of an API by its endpoint id.
func (r *Registry) Endpoint(apiName, endpointID string) (*api.APIDescriptor, *api.EndpointDefinition, error) {
	d, err := r.API(apiName)
	if err != nil {
		return nil, nil, err
	}
	ep, ok := d.EndpointByID[endpointID]
	if !ok {
		return nil, nil, api.NewEndpointNotFoundError(d.Name, endpointID)
	}
	return d, ep, nil
}

var _ api.Catalog = (*Registry)(nil)

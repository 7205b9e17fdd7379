package app

import (
	"sync/atomic"

	"openapi-mcp/internal/api"
	"openapi-mcp/internal/registry"
)

// LiveCatalog is an api.Catalog whose registry can be replaced while calls
// are in flight. Each call sees one complete registry.
type LiveCatalog struct {
	current atomic.Pointer[registry.Registry]
}

var _ api.Catalog = (*LiveCatalog)(nil)

// NewLiveCatalog creates a catalog serving reg.
func NewLiveCatalog(reg *registry.Registry) *LiveCatalog {
	c := &LiveCatalog{}
	c.current.Store(reg)
	return c
}

// Swap installs reg and returns the registry it replaced.
func (c *LiveCatalog) Swap(reg *registry.Registry) *registry.Registry {
	return c.current.Swap(reg)
}

// Registry returns the registry currently served.
func (c *LiveCatalog) Registry() *registry.Registry {
	return c.current.Load()
}

func (c *LiveCatalog) APIs() []*api.APIDescriptor {
	return c.Registry().APIs()
}

func (c *LiveCatalog) API(name string) (*api.APIDescriptor, error) {
	return c.Registry().API(name)
}

func (c *LiveCatalog) Endpoint(apiName, endpointID string) (*api.APIDescriptor, *api.EndpointDefinition, error) {
	return c.Registry().Endpoint(apiName, endpointID)
}

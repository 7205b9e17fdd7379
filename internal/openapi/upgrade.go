package openapi

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"sigs.k8s.io/yaml"
)

// isSwagger2 reports whether data (JSON or YAML) declares swagger: "2.0".
func isSwagger2(data []byte) bool {
	var probe struct {
		Swagger string `json:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Swagger == "2.0"
}

// upgradeSwagger2 converts a Swagger 2.0 document into OpenAPI 3.
func upgradeSwagger2(data []byte) (*openapi3.T, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("reading swagger document: %w", err)
	}

	var doc2 openapi2.T
	if err := json.Unmarshal(jsonData, &doc2); err != nil {
		return nil, fmt.Errorf("decoding swagger document: %w", err)
	}

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, err
	}
	return doc3, nil
}

package openapi

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// SecurityOrder records the order in which scheme names are written inside
// each security requirement. kin-openapi models a requirement as a map, which
// loses that order.
type SecurityOrder struct {
	// Document holds the top-level security list.
	Document [][]string
	// Operations is keyed by "<method> <path>" with a lower-case method.
	Operations map[string][][]string
}

// OperationKey builds the Operations key of an operation.
func OperationKey(method, path string) string {
	return strings.ToLower(method) + " " + path
}

// ReadSecurityOrder scans a raw JSON or YAML document for security lists.
// Unparseable input yields an empty order.
func ReadSecurityOrder(data []byte) SecurityOrder {
	order := SecurityOrder{Operations: make(map[string][][]string)}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return order
	}
	doc := root.Content[0]

	order.Document = requirementOrder(mappingValue(doc, "security"))

	paths := mappingValue(doc, "paths")
	if paths == nil || paths.Kind != yaml.MappingNode {
		return order
	}
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path, item := paths.Content[i].Value, paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method, op := item.Content[j].Value, item.Content[j+1]
			if op.Kind != yaml.MappingNode {
				continue
			}
			if reqs := requirementOrder(mappingValue(op, "security")); reqs != nil {
				order.Operations[OperationKey(method, path)] = reqs
			}
		}
	}
	return order
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func requirementOrder(list *yaml.Node) [][]string {
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil
	}
	out := make([][]string, 0, len(list.Content))
	for _, req := range list.Content {
		var names []string
		if req.Kind == yaml.MappingNode {
			for i := 0; i+1 < len(req.Content); i += 2 {
				names = append(names, req.Content[i].Value)
			}
		}
		out = append(out, names)
	}
	return out
}

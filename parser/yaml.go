package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAML reads and writes YAML locale files, preserving key order.
type YAML struct{}

func (YAML) Name() string { return "yaml" }
func (YAML) Ext() string  { return "yaml" }

// Parse decodes a YAML mapping document.
func (YAML) Parse(data []byte) (*Object, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	// Empty document.
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewObject(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parsing YAML: root must be a mapping, got kind %d", root.Kind)
	}
	obj, err := yamlObject(root)
	if err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return obj, nil
}

func yamlObject(node *yaml.Node) (*Object, error) {
	obj := NewObject()
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		if valNode.Kind == yaml.AliasNode {
			valNode = valNode.Alias
		}
		key := keyNode.Value
		switch valNode.Kind {
		case yaml.MappingNode:
			child, err := yamlObject(valNode)
			if err != nil {
				return nil, err
			}
			obj.Set(key, child)
		case yaml.SequenceNode:
			items := make([]string, 0, len(valNode.Content))
			for j, item := range valNode.Content {
				if item.Kind != yaml.ScalarNode {
					return nil, fmt.Errorf("key %q item %d: expected a scalar", key, j)
				}
				items = append(items, yamlScalar(item))
			}
			obj.Set(key, items)
		case yaml.ScalarNode:
			obj.Set(key, yamlScalar(valNode))
		default:
			return nil, fmt.Errorf("key %q: unsupported node kind %d", key, valNode.Kind)
		}
	}
	return obj, nil
}

func yamlScalar(n *yaml.Node) string {
	if n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// Marshal writes the object as a block-style YAML mapping in key order.
func (YAML) Marshal(obj *Object) ([]byte, error) {
	node := yamlNode(obj)
	out, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return out, nil
}

func yamlNode(obj *Object) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range obj.keys {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		var val *yaml.Node
		switch v := obj.values[k].(type) {
		case *Object:
			val = yamlNode(v)
		case []string:
			val = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, s := range v {
				val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s})
			}
		case string:
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
		}
		m.Content = append(m.Content, key, val)
	}
	return m
}

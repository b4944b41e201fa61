package mutate

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// lookup returns the value node of key in a mapping and the index of its key node
func lookup(m *yaml.Node, key string) (*yaml.Node, int) {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil, -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], i
		}
	}
	return nil, -1
}

// set replaces the value of key or appends the pair
func set(m *yaml.Node, key string, value *yaml.Node) {
	if _, i := lookup(m, key); i >= 0 {
		value.HeadComment = m.Content[i+1].HeadComment
		value.LineComment = m.Content[i+1].LineComment
		m.Content[i+1] = value
		return
	}
	m.Content = append(m.Content, scalar(key), value)
}

// remove deletes key and reports whether it was present
func remove(m *yaml.Node, key string) bool {
	_, i := lookup(m, key)
	if i < 0 {
		return false
	}
	m.Content = append(m.Content[:i], m.Content[i+2:]...)
	return true
}

// renameKey changes a key in place, keeping its position and comments
func renameKey(m *yaml.Node, oldKey, newKey string) bool {
	_, i := lookup(m, oldKey)
	if i < 0 {
		return false
	}
	m.Content[i].Value = newKey
	return true
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

func quoted(value string) *yaml.Node {
	n := scalar(value)
	n.Style = yaml.DoubleQuotedStyle
	return n
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func sequence(items ...*yaml.Node) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
	if len(items) == 0 {
		n.Style = yaml.FlowStyle
	}
	return n
}

// encode converts a value to a node using its yaml tags
func encode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return &n, nil
}

// editable returns a mapping node for a section or service that can be
// written in place. Null values become empty mappings and aliases are
// copied so the anchored original is left alone.
func editable(parent *yaml.Node, key string) (*yaml.Node, error) {
	value, i := lookup(parent, key)
	if i < 0 {
		return nil, nil
	}
	switch {
	case value.Kind == yaml.AliasNode:
		value = deepCopy(value.Alias)
		value.Anchor = ""
		parent.Content[i+1] = value
	case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
		value = mapping()
		parent.Content[i+1] = value
	}
	if value.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s: %w: expected a mapping", key, ErrInvalid)
	}
	return value, nil
}

func deepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = deepCopy(child)
		}
	}
	return &c
}

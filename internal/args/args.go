// Package args decodes template arguments from YAML or JSON documents.
//
// A document is a sequence with one element per argument. Mappings keep the
// order of their keys and become value.Pairs. A node tagged !skip becomes the
// skip value.
package args

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/canonical/sqltpl/value"
)

// SkipTag is the tag marking the skip value. "!!skip" is accepted as well.
const SkipTag = "!skip"

// Decode decodes the argument list in doc. An empty document is an empty
// list.
func Decode(doc []byte) ([]any, error) {
	var root yaml.Node
	err := yaml.NewDecoder(bytes.NewReader(doc)).Decode(&root)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot parse arguments: %w", err)
	}

	node := &root
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, nil
		}
		node = node.Content[0]
	}
	node = resolveAlias(node)
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: arguments must be a sequence", node.Line)
	}

	args := make([]any, len(node.Content))
	for i, n := range node.Content {
		arg, err := decodeNode(n)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args[i] = arg
	}
	return args, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func decodeNode(n *yaml.Node) (any, error) {
	n = resolveAlias(n)
	if n.Tag == SkipTag || n.Tag == "!"+SkipTag {
		return value.Skip(), nil
	}

	switch n.Kind {
	case yaml.SequenceNode:
		list := make([]any, len(n.Content))
		for i, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			list[i] = v
		}
		return list, nil
	case yaml.MappingNode:
		pairs := make(value.Pairs, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := resolveAlias(n.Content[i]), n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := decodeNode(v)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k.Value, err)
			}
			pairs = append(pairs, value.Pair{Key: k.Value, Value: val})
		}
		return pairs, nil
	case yaml.ScalarNode:
		return decodeScalar(n)
	}
	return nil, fmt.Errorf("line %d: unexpected node", n.Line)
}

// decodeScalar decodes a scalar following the YAML core schema.
func decodeScalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: integer %s out of range", n.Line, n.Value)
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("line %d: %s is not a finite number", n.Line, strconv.Quote(n.Value))
		}
		return f, nil
	case "!!str", "!!binary", "!!timestamp":
		return n.Value, nil
	}
	return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, n.Tag)
}

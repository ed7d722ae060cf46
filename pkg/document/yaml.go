package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"
)

const mergeTag = "!!merge"

// ParseYAML decodes the first YAML document in data. An empty input decodes
// to a null scalar. file is only used for locations and error messages.
func ParseYAML(data []byte, file string) (*Node, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return NewNull().WithLocation(Location{File: file}), nil
		}
		return nil, newParseError(file, data, 0, 0, err, "invalid YAML: %v", err)
	}

	d := &yamlDecoder{file: file, src: data, active: make(map[*yaml.Node]bool)}
	return d.decode(&root)
}

// MustParseYAML is like ParseYAML but panics on error. It is intended for
// tests and literals known to be valid.
func MustParseYAML(src string) *Node {
	n, err := ParseYAML([]byte(src), "")
	if err != nil {
		panic(err)
	}
	return n
}

type yamlDecoder struct {
	file string
	src  []byte
	// active guards against aliases that refer to one of their own ancestors.
	active map[*yaml.Node]bool
}

func (d *yamlDecoder) loc(n *yaml.Node) Location {
	return Location{File: d.file, Line: n.Line, Column: n.Column}
}

func (d *yamlDecoder) fail(n *yaml.Node, format string, args ...any) error {
	return newParseError(d.file, d.src, n.Line, n.Column, nil, format, args...)
}

func (d *yamlDecoder) decode(n *yaml.Node) (*Node, error) {
	if d.active[n] {
		return nil, d.fail(n, "recursive alias")
	}
	d.active[n] = true
	defer delete(d.active, n)

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewNull().WithLocation(d.loc(n)), nil
		}
		return d.decode(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, d.fail(n, "unknown alias %q", n.Value)
		}
		return d.decode(n.Alias)
	case yaml.MappingNode:
		return d.decodeMapping(n)
	case yaml.SequenceNode:
		items := make([]*Node, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := d.decode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return NewSequence(items...).WithLocation(d.loc(n)), nil
	case yaml.ScalarNode:
		return d.decodeScalar(n)
	default:
		return nil, d.fail(n, "unsupported YAML node kind %d", n.Kind)
	}
}

func (d *yamlDecoder) decodeMapping(n *yaml.Node) (*Node, error) {
	if len(n.Content)%2 != 0 {
		return nil, d.fail(n, "mapping has an odd number of nodes")
	}

	// Explicit keys always win over keys pulled in with "<<".
	explicit := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == mergeTag {
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, d.fail(k, "mapping keys must be scalars")
		}
		if prev, dup := explicit[k.Value]; dup {
			return nil, d.fail(k, "duplicate key %q (first defined at line %d)", k.Value, prev.Line)
		}
		explicit[k.Value] = k
	}

	b := NewMappingBuilder(len(n.Content) / 2)
	b.SetLocation(d.loc(n))
	for i := 0; i < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.ShortTag() == mergeTag {
			if err := d.merge(b, v, explicit); err != nil {
				return nil, err
			}
			continue
		}
		value, err := d.decode(v)
		if err != nil {
			return nil, err
		}
		b.Set(k.Value, value)
	}
	return b.Build(), nil
}

// merge applies a "<<" value: a mapping, an alias to one, or a sequence of
// those. Earlier sources win over later ones.
func (d *yamlDecoder) merge(b *MappingBuilder, v *yaml.Node, explicit map[string]*yaml.Node) error {
	var sources []*yaml.Node
	if v.Kind == yaml.SequenceNode {
		sources = v.Content
	} else {
		sources = []*yaml.Node{v}
	}
	for _, src := range sources {
		m, err := d.decode(src)
		if err != nil {
			return err
		}
		if !m.IsMapping() {
			return d.fail(src, "merge key value must be a mapping, got %s", m.Kind())
		}
		for i, key := range m.keys {
			if _, ok := explicit[key]; ok || b.Has(key) {
				continue
			}
			b.Set(key, m.values[i])
		}
	}
	return nil
}

func (d *yamlDecoder) decodeScalar(n *yaml.Node) (*Node, error) {
	loc := d.loc(n)
	switch n.ShortTag() {
	case "!!null":
		return NewNull().WithLocation(loc), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, d.fail(n, "invalid boolean %q", n.Value)
		}
		return NewBool(b).WithLocation(loc), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return NewInt(i).WithLocation(loc), nil
		}
		// Out of int64 range: keep the magnitude as a float.
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.fail(n, "invalid integer %q", n.Value)
		}
		return NewFloat(f).WithLocation(loc), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.fail(n, "invalid float %q", n.Value)
		}
		return NewFloat(f).WithLocation(loc), nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their text.
		return NewString(n.Value).WithLocation(loc), nil
	}
}

// EncodeYAML renders n as a YAML document with two-space indentation.
func EncodeYAML(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToYAMLNode(n)); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// ToYAMLNode converts n into a yaml.v3 node tree.
func ToYAMLNode(n *Node) *yaml.Node {
	switch n.kind {
	case MappingKind:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, k := range n.keys {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAMLNode(n.values[i]))
		}
		return out
	case SequenceKind:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, v := range n.values {
			out.Content = append(out.Content, ToYAMLNode(v))
		}
		return out
	}

	switch n.typ {
	case StringType:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.str}
	case IntType:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.i, 10)}
	case FloatType:
		v := formatFloat(n.f)
		if !math.IsInf(n.f, 0) && !math.IsNaN(n.f) && n.f == math.Trunc(n.f) && math.Abs(n.f) < 1e21 {
			v += ".0"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v}
	case BoolType:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.b)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

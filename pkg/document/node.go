package document

import (
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Node holds.
type Kind uint8

const (
	ScalarKind Kind = iota + 1
	MappingKind
	SequenceKind
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case MappingKind:
		return "mapping"
	case SequenceKind:
		return "sequence"
	default:
		return "unknown"
	}
}

// ScalarType identifies the value type of a scalar node.
type ScalarType uint8

const (
	NullType ScalarType = iota
	StringType
	IntType
	FloatType
	BoolType
)

// String returns the lowercase type name.
func (t ScalarType) String() string {
	switch t {
	case NullType:
		return "null"
	case StringType:
		return "string"
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case BoolType:
		return "bool"
	default:
		return "unknown"
	}
}

// Node is one immutable element of a configuration document.
//
// The zero value is not usable; build nodes with the New* constructors,
// a MappingBuilder, or the parsers.
type Node struct {
	kind Kind
	typ  ScalarType

	str string
	i   int64
	f   float64
	b   bool

	// keys and values are parallel for mappings; sequences use values only.
	keys   []string
	values []*Node

	loc Location
}

// Pair is one key/value entry of a mapping.
type Pair struct {
	Key   string
	Value *Node
}

// NewNull returns a null scalar.
func NewNull() *Node { return &Node{kind: ScalarKind, typ: NullType} }

// NewString returns a string scalar.
func NewString(s string) *Node { return &Node{kind: ScalarKind, typ: StringType, str: s} }

// NewInt returns an integer scalar.
func NewInt(i int64) *Node { return &Node{kind: ScalarKind, typ: IntType, i: i} }

// NewFloat returns a floating point scalar.
func NewFloat(f float64) *Node { return &Node{kind: ScalarKind, typ: FloatType, f: f} }

// NewBool returns a boolean scalar.
func NewBool(b bool) *Node { return &Node{kind: ScalarKind, typ: BoolType, b: b} }

// NewSequence returns a sequence holding items in order.
func NewSequence(items ...*Node) *Node {
	values := make([]*Node, len(items))
	copy(values, items)
	return &Node{kind: SequenceKind, values: values}
}

// NewMapping returns a mapping with the given pairs in order. A repeated key
// replaces the earlier value in place.
func NewMapping(pairs ...Pair) *Node {
	b := NewMappingBuilder(len(pairs))
	for _, p := range pairs {
		b.Set(p.Key, p.Value)
	}
	return b.Build()
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// IsScalar reports whether n is a scalar.
func (n *Node) IsScalar() bool { return n.kind == ScalarKind }

// IsMapping reports whether n is a mapping.
func (n *Node) IsMapping() bool { return n.kind == MappingKind }

// IsSequence reports whether n is a sequence.
func (n *Node) IsSequence() bool { return n.kind == SequenceKind }

// IsNull reports whether n is the null scalar.
func (n *Node) IsNull() bool { return n.kind == ScalarKind && n.typ == NullType }

// ScalarType returns the scalar type. It is NullType for non-scalars.
func (n *Node) ScalarType() ScalarType {
	if n.kind != ScalarKind {
		return NullType
	}
	return n.typ
}

// StringValue returns the value of a string scalar.
func (n *Node) StringValue() (string, bool) {
	if n.kind != ScalarKind || n.typ != StringType {
		return "", false
	}
	return n.str, true
}

// IntValue returns the value of an integer scalar.
func (n *Node) IntValue() (int64, bool) {
	if n.kind != ScalarKind || n.typ != IntType {
		return 0, false
	}
	return n.i, true
}

// FloatValue returns the value of a float scalar.
func (n *Node) FloatValue() (float64, bool) {
	if n.kind != ScalarKind || n.typ != FloatType {
		return 0, false
	}
	return n.f, true
}

// BoolValue returns the value of a boolean scalar.
func (n *Node) BoolValue() (bool, bool) {
	if n.kind != ScalarKind || n.typ != BoolType {
		return false, false
	}
	return n.b, true
}

// Text renders a scalar the way it is spliced into a string during variable
// substitution. Non-scalars render as an empty string.
func (n *Node) Text() string {
	if n.kind != ScalarKind {
		return ""
	}
	switch n.typ {
	case StringType:
		return n.str
	case IntType:
		return strconv.FormatInt(n.i, 10)
	case FloatType:
		return formatFloat(n.f)
	case BoolType:
		return strconv.FormatBool(n.b)
	default:
		return "null"
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Len returns the number of entries of a mapping or sequence, and 0 for
// scalars.
func (n *Node) Len() int { return len(n.values) }

// Keys returns a copy of the mapping keys in order.
func (n *Node) Keys() []string {
	if n.kind != MappingKind {
		return nil
	}
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// KeyAt returns the i-th mapping key.
func (n *Node) KeyAt(i int) string { return n.keys[i] }

// ValueAt returns the i-th mapping value or sequence element.
func (n *Node) ValueAt(i int) *Node { return n.values[i] }

// Pairs returns the mapping entries in order.
func (n *Node) Pairs() []Pair {
	if n.kind != MappingKind {
		return nil
	}
	pairs := make([]Pair, len(n.keys))
	for i, k := range n.keys {
		pairs[i] = Pair{Key: k, Value: n.values[i]}
	}
	return pairs
}

// Items returns a copy of the sequence elements.
func (n *Node) Items() []*Node {
	if n.kind != SequenceKind {
		return nil
	}
	items := make([]*Node, len(n.values))
	copy(items, n.values)
	return items
}

// Get returns the value stored under key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n.kind != MappingKind {
		return nil, false
	}
	for i, k := range n.keys {
		if k == key {
			return n.values[i], true
		}
	}
	return nil, false
}

// Has reports whether a mapping contains key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Index returns the i-th element of a sequence.
func (n *Node) Index(i int) (*Node, bool) {
	if n.kind != SequenceKind || i < 0 || i >= len(n.values) {
		return nil, false
	}
	return n.values[i], true
}

// Lookup walks path from n. Key segments that look like integers also
// index into sequences, so "servers.0.host" and "servers[0].host" are
// equivalent.
func (n *Node) Lookup(path Path) (*Node, bool) {
	found, _, ok := n.Locate(path)
	return found, ok
}

// Locate is Lookup that also returns the concrete path of the node found,
// with numeric keys that indexed a sequence turned into index segments.
func (n *Node) Locate(path Path) (*Node, Path, bool) {
	cur := n
	concrete := make(Path, 0, len(path))
	for _, seg := range path {
		var ok bool
		switch cur.kind {
		case MappingKind:
			key := seg.Key
			if seg.IsIndex {
				key = strconv.Itoa(seg.Index)
			}
			cur, ok = cur.Get(key)
			concrete = append(concrete, Segment{Key: key})
		case SequenceKind:
			idx := seg.Index
			if !seg.IsIndex {
				parsed, err := strconv.Atoi(seg.Key)
				if err != nil {
					return nil, nil, false
				}
				idx = parsed
			}
			cur, ok = cur.Index(idx)
			concrete = append(concrete, Segment{Index: idx, IsIndex: true})
		default:
			return nil, nil, false
		}
		if !ok {
			return nil, nil, false
		}
	}
	return cur, concrete, true
}

// Location returns the source position of the node, if it was parsed.
func (n *Node) Location() Location { return n.loc }

// WithLocation returns a shallow copy of n positioned at loc.
func (n *Node) WithLocation(loc Location) *Node {
	cp := *n
	cp.loc = loc
	return &cp
}

// WithoutKeys returns a copy of a mapping with the named keys removed. Any
// other node is returned unchanged.
func (n *Node) WithoutKeys(drop func(key string) bool) *Node {
	if n.kind != MappingKind {
		return n
	}
	b := NewMappingBuilder(len(n.keys))
	b.SetLocation(n.loc)
	for i, k := range n.keys {
		if drop(k) {
			continue
		}
		b.Set(k, n.values[i])
	}
	return b.Build()
}

// Equal reports whether a and b hold the same value. Mapping key order is
// ignored; sequence order is significant. Scalars are equal only when both
// type and value match.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case ScalarKind:
		return scalarEqual(a, b)
	case MappingKind:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			bv, ok := b.Get(k)
			if !ok || !Equal(a.values[i], bv) {
				return false
			}
		}
		return true
	case SequenceKind:
		if len(a.values) != len(b.values) {
			return false
		}
		for i := range a.values {
			if !Equal(a.values[i], b.values[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func scalarEqual(a, b *Node) bool {
	if a.typ != b.typ {
		return false
	}
	switch a.typ {
	case StringType:
		return a.str == b.str
	case IntType:
		return a.i == b.i
	case FloatType:
		return a.f == b.f
	case BoolType:
		return a.b == b.b
	default:
		return true
	}
}

// Canonical returns a copy of n with every mapping's keys sorted, which gives
// a stable rendering for digests and textual diffs.
func Canonical(n *Node) *Node {
	switch n.kind {
	case MappingKind:
		idx := make([]int, len(n.keys))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(x, y int) bool { return n.keys[idx[x]] < n.keys[idx[y]] })
		b := NewMappingBuilder(len(n.keys))
		b.SetLocation(n.loc)
		for _, i := range idx {
			b.Set(n.keys[i], Canonical(n.values[i]))
		}
		return b.Build()
	case SequenceKind:
		items := make([]*Node, len(n.values))
		for i, v := range n.values {
			items[i] = Canonical(v)
		}
		return NewSequence(items...).WithLocation(n.loc)
	default:
		return n
	}
}

// MappingBuilder assembles a mapping node while preserving insertion order.
type MappingBuilder struct {
	keys   []string
	values []*Node
	index  map[string]int
	loc    Location
}

// NewMappingBuilder returns an empty builder sized for hint entries.
func NewMappingBuilder(hint int) *MappingBuilder {
	return &MappingBuilder{
		keys:   make([]string, 0, hint),
		values: make([]*Node, 0, hint),
		index:  make(map[string]int, hint),
	}
}

// Set stores value under key. An existing key keeps its position.
func (b *MappingBuilder) Set(key string, value *Node) {
	if i, ok := b.index[key]; ok {
		b.values[i] = value
		return
	}
	b.index[key] = len(b.keys)
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
}

// Get returns the value currently stored under key.
func (b *MappingBuilder) Get(key string) (*Node, bool) {
	i, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return b.values[i], true
}

// Has reports whether key has been set.
func (b *MappingBuilder) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

// Len returns the number of entries set so far.
func (b *MappingBuilder) Len() int { return len(b.keys) }

// SetLocation records the source position of the mapping being built.
func (b *MappingBuilder) SetLocation(loc Location) { b.loc = loc }

// Build returns the finished mapping. The builder must not be used afterwards.
func (b *MappingBuilder) Build() *Node {
	return &Node{kind: MappingKind, keys: b.keys, values: b.values, loc: b.loc}
}

package variables

import (
	"errors"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// Resolver substitutes variable references in a document.
//
// An identifier is looked up, in order, as:
//  1. a dotted path in the document being resolved ("db.host", "hosts.0");
//  2. a top-level variable key, the name prefix plus the first segment
//     ("$host" for "host");
//  3. the self-reference token, which yields the environment name.
//
// A document path therefore shadows the self-reference token. Anything else
// is reported as an UnresolvedReference and left verbatim.
//
// Resolution runs to a fixed point in bounded passes. Each pass finalizes the
// values whose dependencies were final when the pass began, so the result
// never depends on visit order. Values that are still pending when no pass
// makes progress, or when the pass bound is hit, fail individually with a
// CyclicReferenceError and keep their original text.
type Resolver struct {
	syntax    *Syntax
	selfToken string
	maxPasses int
}

// Result is the outcome of resolving one document.
type Result struct {
	// Document is the resolved document with variable keys removed.
	Document *document.Node
	// Warnings lists unresolved references in document order.
	Warnings []UnresolvedReference
	// Errors lists values that failed with a cyclic reference, in document
	// order.
	Errors []*CyclicReferenceError
}

// Err joins the value errors, or returns nil when there are none.
func (r *Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// New creates a resolver for the given substitution settings. A maxPasses of
// zero or less uses config.DefaultMaxResolvePasses.
func New(pc config.PercyConfig, maxPasses int) (*Resolver, error) {
	syntax, err := SyntaxFor(pc)
	if err != nil {
		return nil, err
	}
	if maxPasses <= 0 {
		maxPasses = config.DefaultMaxResolvePasses
	}
	return &Resolver{syntax: syntax, selfToken: pc.EnvVariableName, maxPasses: maxPasses}, nil
}

// Syntax returns the reference syntax used by the resolver.
func (r *Resolver) Syntax() *Syntax { return r.syntax }

type targetKind uint8

const (
	literalTarget targetKind = iota
	slotTarget
	unresolvedTarget
)

// target is what one reference points at.
type target struct {
	kind   targetKind
	text   string // literalTarget
	slot   int    // slotTarget
	reason string // unresolvedTarget
}

// slot is a string value that contains at least one reference.
type slot struct {
	path    document.Path
	key     string
	text    string
	refs    []Reference
	targets []target

	done     bool
	value    string
	warnings []UnresolvedReference
}

// Resolve substitutes every reference in doc. env is the name of the
// environment being hydrated and is what the self-reference token resolves
// to. doc is not modified.
func (r *Resolver) Resolve(doc *document.Node, env string) *Result {
	run := &resolution{Resolver: r, doc: doc, env: env, index: make(map[string]int)}
	run.collect(doc, nil)
	for i := range run.slots {
		run.bind(i)
	}
	run.iterate()

	res := &Result{}
	for i := range run.slots {
		s := &run.slots[i]
		if s.done {
			res.Warnings = append(res.Warnings, s.warnings...)
			continue
		}
		chain, cyclic := run.chain(i)
		err := &CyclicReferenceError{Path: s.path, Chain: chain}
		if !cyclic {
			err.PassLimit = r.maxPasses
		}
		res.Errors = append(res.Errors, err)
	}

	out := run.rebuild(doc, nil)
	res.Document = out.WithoutKeys(r.syntax.IsVariableKey)
	return res
}

// resolution holds the state of one Resolve call.
type resolution struct {
	*Resolver
	doc   *document.Node
	env   string
	slots []slot
	index map[string]int

	candidates []string
}

func (run *resolution) collect(n *document.Node, path document.Path) {
	switch n.Kind() {
	case document.MappingKind:
		for i := 0; i < n.Len(); i++ {
			run.collect(n.ValueAt(i), path.Key(n.KeyAt(i)))
		}
	case document.SequenceKind:
		for i := 0; i < n.Len(); i++ {
			run.collect(n.ValueAt(i), path.Index(i))
		}
	default:
		s, ok := n.StringValue()
		if !ok {
			return
		}
		refs := run.syntax.Find(s)
		if len(refs) == 0 {
			return
		}
		key := path.String()
		run.index[key] = len(run.slots)
		run.slots = append(run.slots, slot{path: path, key: key, text: s, refs: refs})
	}
}

func (run *resolution) bind(i int) {
	s := &run.slots[i]
	s.targets = make([]target, len(s.refs))
	for j, ref := range s.refs {
		s.targets[j] = run.lookup(ref.Name)
	}
}

func (run *resolution) lookup(name string) target {
	if p, err := document.ParsePath(name); err == nil {
		if t, ok := run.lookupPath(p); ok {
			return t
		}
		if run.syntax.NamePrefix != "" && !p[0].IsIndex {
			alt := append(document.Path{{Key: run.syntax.NamePrefix + p[0].Key}}, p[1:]...)
			if t, ok := run.lookupPath(alt); ok {
				return t
			}
		}
	}
	if run.selfToken != "" && name == run.selfToken {
		return target{kind: literalTarget, text: run.env}
	}
	return target{kind: unresolvedTarget, reason: "no value named " + name}
}

func (run *resolution) lookupPath(p document.Path) (target, bool) {
	n, concrete, ok := run.doc.Locate(p)
	if !ok {
		return target{}, false
	}
	switch {
	case n.IsMapping():
		return target{kind: unresolvedTarget, reason: "refers to a mapping"}, true
	case n.IsSequence():
		return target{kind: unresolvedTarget, reason: "refers to a sequence"}, true
	case n.IsNull():
		return target{kind: unresolvedTarget, reason: "refers to a null value"}, true
	}
	if idx, ok := run.index[concrete.String()]; ok {
		return target{kind: slotTarget, slot: idx}, true
	}
	return target{kind: literalTarget, text: n.Text()}, true
}

// iterate runs resolution passes until nothing is pending, a pass makes no
// progress, or the pass bound is reached.
func (run *resolution) iterate() {
	pending := len(run.slots)
	final := make([]bool, len(run.slots))
	for pass := 0; pending > 0 && pass < run.maxPasses; pass++ {
		for i := range run.slots {
			final[i] = run.slots[i].done
		}
		progressed := false
		for i := range run.slots {
			s := &run.slots[i]
			if s.done || !ready(s, final) {
				continue
			}
			run.finalize(s)
			pending--
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

func ready(s *slot, final []bool) bool {
	for _, t := range s.targets {
		if t.kind == slotTarget && !final[t.slot] {
			return false
		}
	}
	return true
}

func (run *resolution) finalize(s *slot) {
	buf := make([]byte, 0, len(s.text))
	last := 0
	for j, ref := range s.refs {
		buf = append(buf, s.text[last:ref.Start]...)
		last = ref.End
		switch t := s.targets[j]; t.kind {
		case literalTarget:
			buf = append(buf, t.text...)
		case slotTarget:
			buf = append(buf, run.slots[t.slot].value...)
		default:
			buf = append(buf, ref.Raw...)
			s.warnings = append(s.warnings, UnresolvedReference{
				Path:       s.path,
				Reference:  ref.Raw,
				Name:       ref.Name,
				Reason:     t.reason,
				Suggestion: suggest(ref.Name, run.suggestions()),
			})
		}
	}
	buf = append(buf, s.text[last:]...)
	s.value = string(buf)
	s.done = true
}

// chain follows pending dependencies from slot i. It reports true when the
// walk closes a cycle, false when it ended at a value that only missed the
// pass bound.
func (run *resolution) chain(i int) ([]string, bool) {
	seen := make(map[int]bool)
	var chain []string
	for cur := i; ; {
		chain = append(chain, run.slots[cur].key)
		if seen[cur] {
			return chain, true
		}
		seen[cur] = true
		next := -1
		for _, t := range run.slots[cur].targets {
			if t.kind == slotTarget && !run.slots[t.slot].done {
				next = t.slot
				break
			}
		}
		if next < 0 {
			return chain, false
		}
		cur = next
	}
}

func (run *resolution) rebuild(n *document.Node, path document.Path) *document.Node {
	switch n.Kind() {
	case document.MappingKind:
		b := document.NewMappingBuilder(n.Len())
		b.SetLocation(n.Location())
		for i := 0; i < n.Len(); i++ {
			b.Set(n.KeyAt(i), run.rebuild(n.ValueAt(i), path.Key(n.KeyAt(i))))
		}
		return b.Build()
	case document.SequenceKind:
		items := make([]*document.Node, n.Len())
		for i := range items {
			items[i] = run.rebuild(n.ValueAt(i), path.Index(i))
		}
		return document.NewSequence(items...).WithLocation(n.Location())
	default:
		if !n.IsScalar() || n.ScalarType() != document.StringType {
			return n
		}
		idx, ok := run.index[path.String()]
		if !ok || !run.slots[idx].done {
			return n
		}
		return document.NewString(run.slots[idx].value).WithLocation(n.Location())
	}
}

// suggestions lists the identifiers a reference could have used. Built on
// first use since most documents resolve cleanly.
func (run *resolution) suggestions() []string {
	if run.candidates != nil {
		return run.candidates
	}
	run.candidates = []string{}
	if run.selfToken != "" {
		run.candidates = append(run.candidates, run.selfToken)
	}
	var walk func(n *document.Node, path document.Path)
	walk = func(n *document.Node, path document.Path) {
		switch n.Kind() {
		case document.MappingKind:
			for i := 0; i < n.Len(); i++ {
				key := n.KeyAt(i)
				if len(path) == 0 && run.syntax.IsVariableKey(key) {
					key = key[len(run.syntax.NamePrefix):]
				}
				walk(n.ValueAt(i), path.Key(key))
			}
		case document.SequenceKind:
			for i := 0; i < n.Len(); i++ {
				walk(n.ValueAt(i), path.Index(i))
			}
		default:
			if len(path) > 0 && !n.IsNull() {
				run.candidates = append(run.candidates, path.String())
			}
		}
	}
	walk(run.doc, nil)
	return run.candidates
}

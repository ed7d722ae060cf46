package hydrate

import (
	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// Merge deep-merges overlay onto base and returns the result. When both are
// mappings their keys are merged recursively: overlay keys win, new overlay
// keys are appended and base keys absent from the overlay are kept, in base
// order. In every other case the overlay replaces the base value whole, so
// sequences are never merged element-wise. Neither input is modified.
func Merge(base, overlay *document.Node) *document.Node {
	if !base.IsMapping() || !overlay.IsMapping() {
		return overlay
	}

	b := document.NewMappingBuilder(base.Len() + overlay.Len())
	b.SetLocation(base.Location())
	for i := 0; i < base.Len(); i++ {
		b.Set(base.KeyAt(i), base.ValueAt(i))
	}
	for i := 0; i < overlay.Len(); i++ {
		key, value := overlay.KeyAt(i), overlay.ValueAt(i)
		if existing, ok := b.Get(key); ok {
			value = Merge(existing, value)
		}
		b.Set(key, value)
	}
	return b.Build()
}

// checkStrict verifies that every property of overlay exists in base with a
// compatible type.
func checkStrict(base, overlay *document.Node, env string, path document.Path) error {
	for i := 0; i < overlay.Len(); i++ {
		key, value := overlay.KeyAt(i), overlay.ValueAt(i)
		p := path.Key(key)

		existing, ok := base.Get(key)
		if !ok {
			return &OverlayError{Environment: env, Path: p.String(), Message: "cannot find property"}
		}
		if !sameType(existing, value) {
			return &OverlayError{Environment: env, Path: p.String(), Message: "type is different from default node for property"}
		}
		if value.IsMapping() {
			if err := checkStrict(existing, value, env, p); err != nil {
				return err
			}
		}
	}
	return nil
}

// sameType compares node kinds, and for scalars their types. Integers and
// floats are both numbers; null is compatible with any scalar.
func sameType(a, b *document.Node) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	if !a.IsScalar() || a.IsNull() || b.IsNull() {
		return true
	}
	return scalarClass(a) == scalarClass(b)
}

func scalarClass(n *document.Node) document.ScalarType {
	if n.ScalarType() == document.FloatType {
		return document.IntType
	}
	return n.ScalarType()
}

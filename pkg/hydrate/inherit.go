package hydrate

import (
	"slices"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// overlayResolver computes effective overlays. The effective overlay of an
// environment is its own overlay merged onto the effective overlay of the
// environment it inherits from. Environments without "inherits" start from
// the "default" overlay, when there is one.
type overlayResolver struct {
	app      *Application
	declared map[string]bool
	resolved map[string]*document.Node
	visiting []string
}

func newOverlayResolver(app *Application) *overlayResolver {
	declared := make(map[string]bool, len(app.Environments))
	for _, e := range app.Environments {
		declared[e] = true
	}
	return &overlayResolver{
		app:      app,
		declared: declared,
		resolved: make(map[string]*document.Node),
	}
}

// effective returns the effective overlay of env, or nil when neither env
// nor any of its ancestors has an overlay.
func (r *overlayResolver) effective(env string) (*document.Node, error) {
	if ov, ok := r.resolved[env]; ok {
		return ov, nil
	}

	if i := slices.Index(r.visiting, env); i >= 0 {
		cycle := append(slices.Clone(r.visiting[i:]), env)
		return nil, &InheritanceError{Environment: env, Cycle: cycle}
	}
	r.visiting = append(r.visiting, env)
	defer func() { r.visiting = r.visiting[:len(r.visiting)-1] }()

	own, hasOwn := r.app.Overlay(env)

	parent := ""
	if hasOwn {
		if v, ok := own.Get(inheritsKey); ok {
			name, isString := v.StringValue()
			if !isString || name == "" {
				return nil, &InheritanceError{Environment: env, Message: "inherits must name an environment"}
			}
			parent = name
			own = own.WithoutKeys(func(k string) bool { return k == inheritsKey })
		}
	}

	var base *document.Node
	switch {
	case parent != "":
		if _, ok := r.app.Overlay(parent); !ok && !r.declared[parent] && parent != DefaultEnvironment {
			return nil, &InheritanceError{Environment: env, Message: "inherits unknown environment " + parent}
		}
		ov, err := r.effective(parent)
		if err != nil {
			return nil, err
		}
		base = ov
	case env != DefaultEnvironment:
		ov, err := r.effective(DefaultEnvironment)
		if err != nil {
			return nil, err
		}
		base = ov
	}

	var result *document.Node
	switch {
	case base == nil && hasOwn:
		result = own
	case base == nil:
		result = nil
	case hasOwn:
		result = Merge(base, own)
	default:
		result = base
	}
	r.resolved[env] = result
	return result, nil
}

package hydrate

import (
	"fmt"
	"strings"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// Reserved keys of percy documents.
const (
	// DefaultEnvironment names the base of a percy document, the overlay
	// merged into every other environment, and the single output of an
	// application that declares no environments.
	DefaultEnvironment = "default"

	environmentsKey = "environments"
	inheritsKey     = "inherits"
)

// Environment is a named overlay.
type Environment struct {
	Name    string
	Overlay *document.Node
}

// Application is one base configuration file plus the environments declared
// for it.
type Application struct {
	// Name is the base file path relative to the input root, without
	// extension, using forward slashes ("svc/api").
	Name string

	// RelDir is the directory of the base file relative to the input root.
	RelDir string

	// BaseFile is the path of the base file.
	BaseFile string

	// EnvironmentsFile is the path of the environments file, or "" when the
	// application's directory has none.
	EnvironmentsFile string

	// Base is the document every environment starts from.
	Base *document.Node

	// Overlays are the environment overlays of the base file in file order.
	Overlays []Environment

	// Environments are the declared environment names in declaration order.
	Environments []string

	// Percy is the substitution configuration in effect for the application.
	Percy config.PercyConfig
}

// NewApplication builds an application from a parsed base document. A
// document whose top-level keys are "default" and optionally "environments"
// is a percy document; anything else is used whole as the base with no
// overlays.
func NewApplication(name string, doc *document.Node, environments []string) (*Application, error) {
	base, overlays, err := splitDocument(doc)
	if err != nil {
		return nil, err
	}
	return &Application{
		Name:         name,
		RelDir:       ".",
		Base:         base,
		Overlays:     overlays,
		Environments: environments,
		Percy:        config.DefaultPercyConfig(),
	}, nil
}

// Overlay returns the overlay of an environment, if the base file has one.
func (a *Application) Overlay(env string) (*document.Node, bool) {
	for _, e := range a.Overlays {
		if e.Name == env {
			return e.Overlay, true
		}
	}
	return nil, false
}

// targets returns the environments to produce output for.
func (a *Application) targets() []string {
	if len(a.Environments) == 0 {
		return []string{DefaultEnvironment}
	}
	return a.Environments
}

// isPercyDocument reports whether doc is a top-level mapping with a
// "default" key and no keys other than "default" and "environments".
func isPercyDocument(doc *document.Node) bool {
	if !doc.IsMapping() || !doc.Has(DefaultEnvironment) {
		return false
	}
	for _, k := range doc.Keys() {
		if k != DefaultEnvironment && k != environmentsKey {
			return false
		}
	}
	return true
}

func splitDocument(doc *document.Node) (*document.Node, []Environment, error) {
	if !isPercyDocument(doc) {
		return doc, nil, nil
	}

	base, _ := doc.Get(DefaultEnvironment)
	if !base.IsMapping() {
		return nil, nil, malformed(base, "%q must be a mapping, got %s", DefaultEnvironment, base.Kind())
	}

	envs, ok := doc.Get(environmentsKey)
	if !ok || envs.IsNull() {
		return base, nil, nil
	}
	if !envs.IsMapping() {
		return nil, nil, malformed(envs, "%q must be a mapping of environment overlays, got %s", environmentsKey, envs.Kind())
	}

	overlays := make([]Environment, 0, envs.Len())
	for _, p := range envs.Pairs() {
		overlay := p.Value
		switch {
		case overlay.IsNull():
			overlay = document.NewMapping().WithLocation(overlay.Location())
		case !overlay.IsMapping():
			return nil, nil, malformed(overlay, "environment %q must be a mapping, got %s", p.Key, overlay.Kind())
		}
		overlays = append(overlays, Environment{Name: p.Key, Overlay: overlay})
	}
	return base, overlays, nil
}

// parseEnvironments reads the declared environment names from an
// environments file. Accepted shapes are a sequence of names, or a mapping
// whose "environments" key holds either a sequence of names or a mapping
// keyed by name.
func parseEnvironments(doc *document.Node) ([]string, error) {
	list := doc
	if doc.IsMapping() {
		v, ok := doc.Get(environmentsKey)
		if !ok {
			return nil, malformed(doc, "environments file has no %q key", environmentsKey)
		}
		list = v
	}

	var names []string
	switch {
	case list.IsNull():
		return nil, nil
	case list.IsMapping():
		names = list.Keys()
	case list.IsSequence():
		for _, item := range list.Items() {
			s, ok := item.StringValue()
			if !ok || s == "" {
				return nil, malformed(item, "environment name must be a non-empty string")
			}
			names = append(names, s)
		}
	default:
		return nil, malformed(list, "environments must be a mapping or a sequence, got %s", list.Kind())
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if !validEnvironmentName(n) {
			return nil, malformed(list, "environment name %q cannot be used as a directory name", n)
		}
		if seen[n] {
			return nil, malformed(list, "environment %q declared twice", n)
		}
		seen[n] = true
	}
	return names, nil
}

// validEnvironmentName reports whether name is usable as the single output
// directory of an environment.
func validEnvironmentName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

func malformed(n *document.Node, format string, args ...any) *document.ParseError {
	loc := n.Location()
	return &document.ParseError{
		File:    loc.File,
		Line:    loc.Line,
		Column:  loc.Column,
		Message: fmt.Sprintf(format, args...),
	}
}

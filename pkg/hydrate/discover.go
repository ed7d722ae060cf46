package hydrate

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/document"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
)

// DiscoverApplications walks root recursively and loads every application
// below it. Each YAML file other than the environments file is one
// application; hidden files and directories are skipped.
//
// A missing or unreadable root fails with a *DiscoveryError and no
// applications. Failures of individual applications are collected into an
// *ErrorList of *ApplicationError values, returned together with every
// application that loaded.
func (h *Hydrator) DiscoverApplications(root string) ([]*Application, error) {
	return h.discover(root, true)
}

// DiscoverDirectory loads the applications directly inside dir without
// descending into subdirectories. Application names and output paths are
// relative to the parent of dir, so "svc/api" hydrates to
// <out>/api/<env>/<file>.
func (h *Hydrator) DiscoverDirectory(dir string) ([]*Application, error) {
	apps, err := h.discover(dir, false)
	prefix := filepath.Base(filepath.Clean(dir))
	for _, app := range apps {
		app.Name = path.Join(prefix, app.Name)
		app.RelDir = path.Join(prefix, app.RelDir)
	}
	if list, ok := err.(*ErrorList); ok {
		for _, e := range list.Errors {
			if ae, ok := e.(*ApplicationError); ok {
				ae.Application = path.Join(prefix, ae.Application)
			}
		}
	}
	return apps, err
}

// LoadApplication loads the single application defined by file. The
// environments file and percy rc file are looked up beside it.
func (h *Hydrator) LoadApplication(file string) (*Application, error) {
	dir := filepath.Dir(file)
	d := h.newDiscovery(dir, false)

	pc, err := d.percyConfig(dir, h.config.DefaultPercyConfig)
	if err != nil {
		return nil, err
	}
	env := d.environments(dir)
	name := filepath.Base(file)
	return d.load(dir, ".", name, env, pc)
}

type discovery struct {
	*Hydrator
	root      string
	recursive bool
	apps      []*Application
	errs      *ErrorList
}

// envFile is the environments file of one directory.
type envFile struct {
	path  string
	names []string
	err   error
}

func (h *Hydrator) newDiscovery(root string, recursive bool) *discovery {
	return &discovery{Hydrator: h, root: root, recursive: recursive, errs: &ErrorList{}}
}

func (h *Hydrator) discover(root string, recursive bool) ([]*Application, error) {
	ok, err := h.store.Exists(root)
	if err != nil {
		return nil, &DiscoveryError{Path: root, Message: "failed to access input root", Cause: err}
	}
	if !ok {
		return nil, &DiscoveryError{Path: root, Message: "input root does not exist"}
	}

	d := h.newDiscovery(root, recursive)
	entries, err := h.store.ListDirectory(root)
	if err != nil {
		return nil, &DiscoveryError{Path: root, Message: "input root is not a readable directory", Cause: err}
	}
	d.walk(root, ".", entries, h.config.DefaultPercyConfig)

	h.logger.Debug("discovered applications",
		"root", root,
		"application_count", len(d.apps),
		"error_count", len(d.errs.Errors),
	)
	return d.apps, d.errs.ToError()
}

func (d *discovery) walk(dir, rel string, entries []store.Entry, parent config.PercyConfig) {
	pc, err := d.percyConfig(dir, parent)
	if err != nil {
		d.errs.Add(err)
		return
	}
	env := d.environments(dir)

	// api.yaml and api.yml would both write <out>/<env>/api.<ext>.
	claimed := make(map[string]string)
	for _, e := range entries {
		if e.IsDir || !d.isApplicationFile(e.Name) {
			continue
		}
		name := applicationName(rel, e.Name)
		file := filepath.Join(dir, e.Name)
		if first, ok := claimed[name]; ok {
			d.errs.Add(&ApplicationError{
				Application: name,
				File:        file,
				Cause: &DiscoveryError{
					Path:    file,
					Message: "application " + name + " is already defined by " + first,
				},
			})
			continue
		}
		claimed[name] = file

		app, err := d.load(dir, rel, e.Name, env, pc)
		if err != nil {
			d.errs.Add(&ApplicationError{Application: name, File: file, Cause: err})
			continue
		}
		d.apps = append(d.apps, app)
	}

	if !d.recursive {
		return
	}
	for _, e := range entries {
		if !e.IsDir || strings.HasPrefix(e.Name, ".") {
			continue
		}
		sub := filepath.Join(dir, e.Name)
		children, err := d.store.ListDirectory(sub)
		if err != nil {
			d.errs.Add(&DiscoveryError{Path: sub, Message: "failed to list directory", Cause: err})
			continue
		}
		d.walk(sub, path.Join(rel, e.Name), children, pc)
	}
}

func (d *discovery) isApplicationFile(name string) bool {
	if strings.HasPrefix(name, ".") || name == d.config.EnvironmentFileName {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// environments reads the environments file of dir, if there is one.
func (d *discovery) environments(dir string) *envFile {
	p := filepath.Join(dir, d.config.EnvironmentFileName)
	ok, err := d.store.Exists(p)
	if err != nil {
		return &envFile{path: p, err: &DiscoveryError{Path: p, Message: "failed to access environments file", Cause: err}}
	}
	if !ok {
		return nil
	}
	doc, err := d.store.ReadDocument(p)
	if err != nil {
		return &envFile{path: p, err: err}
	}
	names, err := parseEnvironments(doc)
	if err != nil {
		return &envFile{path: p, err: err}
	}
	return &envFile{path: p, names: names}
}

func (d *discovery) load(dir, rel, name string, env *envFile, pc config.PercyConfig) (*Application, error) {
	file := filepath.Join(dir, name)
	doc, err := d.store.ReadDocument(file)
	if err != nil {
		return nil, err
	}

	app, err := NewApplication(applicationName(rel, name), doc, nil)
	if err != nil {
		return nil, err
	}
	app.RelDir = rel
	app.BaseFile = file
	app.Percy = pc

	switch {
	case env != nil && env.err != nil:
		return nil, env.err
	case env != nil:
		app.EnvironmentsFile = env.path
		app.Environments = env.names
	case len(app.Overlays) > 0:
		return nil, &DiscoveryError{
			Path:    filepath.Join(dir, d.config.EnvironmentFileName),
			Message: "environments file doesn't exist but " + file + " declares environment overlays",
		}
	}
	return app, nil
}

func applicationName(rel, file string) string {
	return path.Join(rel, strings.TrimSuffix(file, filepath.Ext(file)))
}

// percyConfig returns parent overlaid with the percy rc file of dir.
func (d *discovery) percyConfig(dir string, parent config.PercyConfig) (config.PercyConfig, error) {
	p := filepath.Join(dir, d.config.PercyConfigFileName)
	ok, err := d.store.Exists(p)
	if err != nil {
		return parent, &DiscoveryError{Path: p, Message: "failed to access percy config file", Cause: err}
	}
	if !ok {
		return parent, nil
	}

	doc, err := d.store.ReadDocument(p)
	if err != nil {
		return parent, &DiscoveryError{Path: p, Message: "invalid percy config file", Cause: err}
	}
	rc, err := d.parsePercyRC(p, doc)
	if err != nil {
		return parent, &DiscoveryError{Path: p, Message: "invalid percy config file", Cause: err}
	}

	merged := parent.Merge(rc)
	if errs := config.ValidatePercyConfig(p, merged); len(errs) > 0 {
		return parent, &DiscoveryError{Path: p, Message: "invalid percy config file", Cause: config.ValidationError{Errors: errs}}
	}
	d.logger.Debug("applied percy config file", "path", p)
	return merged, nil
}

func (d *discovery) parsePercyRC(p string, doc *document.Node) (config.PercyConfig, error) {
	var rc config.PercyConfig
	if doc.IsNull() {
		return rc, nil
	}
	if !doc.IsMapping() {
		return rc, malformed(doc, "percy config must be an object, got %s", doc.Kind())
	}

	for _, pair := range doc.Pairs() {
		var target *string
		switch pair.Key {
		case "variablePrefix":
			target = &rc.VariablePrefix
		case "variableSuffix":
			target = &rc.VariableSuffix
		case "variableNamePrefix":
			target = &rc.VariableNamePrefix
		case "envVariableName":
			target = &rc.EnvVariableName
		case "strictOverlay":
			b, ok := pair.Value.BoolValue()
			if !ok {
				return rc, malformed(pair.Value, "strictOverlay must be a boolean")
			}
			rc.StrictOverlay = b
			continue
		default:
			d.logger.Warn("ignoring unknown percy config key", "path", p, "key", pair.Key)
			continue
		}
		s, ok := pair.Value.StringValue()
		if !ok {
			return rc, malformed(pair.Value, "%s must be a string", pair.Key)
		}
		*target = s
	}
	return rc, nil
}

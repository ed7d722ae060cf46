// Package variables resolves variable references embedded in string values
// of a percy document.
//
// A reference is written between a configurable prefix and suffix, with an
// optional name prefix before the identifier:
//
//	default:
//	  $host: prod.example.com
//	  url: "https://_{ $host }_/api"
//	  banner: "running in _{ $env }_"
//
// Identifiers name another value of the same document by dotted path, a
// top-level variable key, or the self-reference token that yields the
// environment name. Unknown identifiers produce warnings; reference cycles
// fail only the values involved.
//
// Usage:
//
//	r, err := variables.New(config.DefaultPercyConfig(), 0)
//	if err != nil {
//	    return err
//	}
//	res := r.Resolve(doc, "prod")
//	for _, w := range res.Warnings {
//	    logger.Warn("unresolved variable", "path", w.Path.String(), "reference", w.Reference)
//	}
package variables

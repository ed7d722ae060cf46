// Package document provides the in-memory model for percy configuration
// documents.
//
// A document is a tree of immutable nodes. Every node is exactly one of:
//
//   - a scalar (string, integer, float, boolean or null)
//   - a mapping with ordered, unique string keys
//   - a sequence of nodes
//
// Nodes are constructed by the parsers in this package (ParseYAML,
// ParseJSON) or by the New* constructors. Transformations never modify an
// existing node; they build new ones, usually with a MappingBuilder.
//
// # Parsing
//
// YAML input is decoded through gopkg.in/yaml.v3 so that mapping key order
// and source positions survive. Anchors, aliases and merge keys (<<) are
// expanded during decoding. Duplicate keys are rejected with a *ParseError.
//
//	node, err := document.ParseYAML(data, "apps/shop/app.config.yaml")
//	if err != nil {
//	    var perr *document.ParseError
//	    if errors.As(err, &perr) {
//	        fmt.Println(perr.Line, perr.Snippet)
//	    }
//	}
//
// # Encoding
//
// EncodeJSON and EncodeYAML write nodes back in their original key order,
// which makes hydration output byte-for-byte deterministic.
//
// # Paths
//
// A Path addresses a node from the document root. Paths render as
// "server.ports[0]" and ParsePath accepts both that form and plain dotted
// form ("server.ports.0").
package document

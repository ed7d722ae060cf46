// Package hydrate turns percy configuration files into one fully resolved
// document per environment.
//
// # Input layout
//
// The input root is a directory tree. Every YAML file is an application,
// except hidden files and the environments file. The environments file of a
// directory declares the environments of every application beside it:
//
//	apps/
//	  environments.yaml     # environments: [dev, qat, prod]
//	  .percyrc              # {"variablePrefix": "${", "variableSuffix": "}"}
//	  billing.yaml
//	  svc/
//	    environments.yaml
//	    api.yaml
//
// A percy document has a "default" section holding the base and an optional
// "environments" section holding one overlay per environment:
//
//	default:
//	  $host: example.com
//	  url: "https://_{ $host }_/api"
//	  replicas: 1
//	environments:
//	  prod:
//	    replicas: 3
//	  qat:
//	    inherits: prod
//
// Any other YAML document is used whole as the base.
//
// # Hydration
//
// For each declared environment the effective overlay (its "inherits"
// chain, rooted at the "default" overlay if present) is deep-merged onto
// the base and variable references are resolved with package variables.
// Percy rc files layer substitution settings from the root down.
//
// HydrateAllApps runs applications concurrently and isolates their
// failures; the Report lists every application with its status, outputs,
// warnings and errors.
package hydrate

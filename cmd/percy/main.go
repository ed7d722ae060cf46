// Percy hydrates layered YAML application configuration into one complete
// document per environment.
//
// Each application file holds a default block and per-environment overlays.
// Percy merges the overlays over the defaults, resolves _{ variable }_
// references and writes the result as JSON or YAML.
//
// Usage:
//
//	# Hydrate every application under a directory tree
//	percy hydrate --root apps/ --out build/
//
//	# Hydrate the applications of one directory
//	percy hydrate --app apps/billing --out build/
//
//	# Hydrate a single file
//	percy hydrate --file apps/billing/api.yaml --out build/
//
//	# Compare two hydrated files
//	percy compare build/dev/api.json build/prod/api.json
//
//	# Re-hydrate whenever the input changes
//	percy watch --root apps/ --out build/
//
//	# Show what changed between the last two recorded runs
//	percy history diff
package main

func main() {
	Execute()
}

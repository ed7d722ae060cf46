// Package compare computes structural differences between two documents.
//
// Compare walks both trees together and reports every path that was added,
// removed or changed. Mapping key order is ignored; sequence order is not.
// The result can be rendered as text, as JSON, or as a unified diff of the
// key-sorted JSON renderings.
package compare

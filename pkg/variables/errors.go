package variables

import (
	"fmt"
	"strings"

	"github.com/tmobile/percy-cake-sub002/pkg/document"
)

// CyclicReferenceError reports a value whose references never reach a fixed
// point. Only that value fails; the rest of the document still resolves.
type CyclicReferenceError struct {
	// Path is the location of the failed value.
	Path document.Path
	// Chain lists the paths followed from Path. For a cycle the last element
	// repeats an earlier one.
	Chain []string
	// PassLimit is set when resolution stopped at the pass bound rather than
	// on a detected cycle.
	PassLimit int
}

func (e *CyclicReferenceError) Error() string {
	if e.PassLimit > 0 {
		return fmt.Sprintf("cyclic variable reference at %s: not resolved within %d passes (%s)",
			e.Path, e.PassLimit, strings.Join(e.Chain, " -> "))
	}
	if len(e.Chain) == 2 && e.Chain[0] == e.Chain[1] {
		return fmt.Sprintf("loop variable reference at %s: %s", e.Path, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("cyclic variable reference at %s: %s", e.Path, strings.Join(e.Chain, " -> "))
}

// UnresolvedReference is a warning: a reference whose identifier matched
// nothing. The reference text is left in place.
type UnresolvedReference struct {
	// Path is the location of the value holding the reference.
	Path document.Path
	// Reference is the raw reference text, delimiters included.
	Reference string
	// Name is the identifier that failed to resolve.
	Name string
	// Reason explains why, e.g. the target is a mapping.
	Reason string
	// Suggestion is the closest known identifier, if any.
	Suggestion string
}

func (w UnresolvedReference) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unresolved variable reference %s at %s: %s", w.Reference, w.Path, w.Reason)
	if w.Suggestion != "" {
		fmt.Fprintf(&sb, " (did you mean '%s'?)", w.Suggestion)
	}
	return sb.String()
}

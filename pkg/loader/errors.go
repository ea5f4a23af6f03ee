package loader

import (
	"fmt"
	"strings"

	"github.com/editkit/hilite/pkg/position"
)

// MissingIncludeError reports an include target (or a requested root
// grammar) that no registry fragment resolves.
type MissingIncludeError struct {
	// Fragment is the name that could not be resolved.
	Fragment string
	// IncludedFrom is the fragment containing the include statement, or
	// empty when Fragment was the requested root grammar.
	IncludedFrom string
	Position     position.RawPosition
	// Suggestions holds close registry names, best first.
	Suggestions []string
}

func (e *MissingIncludeError) Error() string {
	var b strings.Builder
	if e.IncludedFrom == "" {
		fmt.Fprintf(&b, "grammar %q not found", e.Fragment)
	} else {
		fmt.Fprintf(&b, "%s: included fragment %q not found (at %s)", e.IncludedFrom, e.Fragment, e.Position.ID())
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, ", did you mean %q", e.Suggestions[0])
	}
	return b.String()
}

// CyclicIncludeError reports an include chain that returns to a fragment
// already being expanded.
type CyclicIncludeError struct {
	// Chain is the include path from the root grammar to the repeated
	// fragment, which appears both first-at-cycle-entry and last.
	Chain []string
}

func (e *CyclicIncludeError) Error() string {
	return fmt.Sprintf("cyclic include chain: %s", strings.Join(e.Chain, " -> "))
}

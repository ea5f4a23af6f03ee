package compile

import (
	"fmt"

	"github.com/editkit/hilite/pkg/grammar"
	"github.com/editkit/hilite/pkg/position"
)

// UndefinedReferenceError reports a $Name reference whose vardef does not
// exist at that point in the effective declaration order.
type UndefinedReferenceError struct {
	Name     string
	Fragment string
	Position position.RawPosition
}

func (e *UndefinedReferenceError) Error() string {
	return fmt.Sprintf("%s: undefined pattern reference $%s (at %s)", e.Fragment, e.Name, e.Position.ID())
}

// UnknownCategoryError reports a declaration whose category name is outside
// the recognized vocabulary.
type UnknownCategoryError struct {
	Category grammar.Category
	Fragment string
	Position position.RawPosition
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: unknown category %q (at %s)", e.Fragment, string(e.Category), e.Position.ID())
}

// InvalidPatternError reports a pattern that cannot be compiled: a malformed
// regex literal, or a delimiter declaration with the wrong shape.
type InvalidPatternError struct {
	Fragment string
	Position position.RawPosition
	Source   string
	Reason   string
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("%s: invalid pattern %q: %s (at %s)", e.Fragment, e.Source, e.Reason, e.Position.ID())
}

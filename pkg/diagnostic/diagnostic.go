// Package diagnostic converts grammar load and compile errors into
// editor-consumable diagnostics with line/column ranges.
package diagnostic

import (
	"encoding/json"

	"github.com/hashicorp/go-multierror"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/editkit/hilite/pkg/compile"
	"github.com/editkit/hilite/pkg/grammar"
	"github.com/editkit/hilite/pkg/loader"
	"github.com/editkit/hilite/pkg/position"
)

// Severity is the severity level of a diagnostic.
type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
	Info    Severity = "info"
	Hint    Severity = "hint"
)

// Diagnostic is a single message anchored to a range in a grammar fragment.
type Diagnostic struct {
	Fragment string         `json:"fragment,omitempty"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Range    position.Range `json:"range"`
}

// Diagnostics groups diagnostics by severity.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
	Hints    []Diagnostic
}

// Empty reports whether no diagnostics were produced.
func (d *Diagnostics) Empty() bool {
	return len(d.Errors) == 0 && len(d.Warnings) == 0 && len(d.Hints) == 0
}

// SourceFunc returns the source text of a fragment for range computation.
// Returning false leaves the diagnostic at the zero range.
type SourceFunc func(fragment string) (string, bool)

// FromError flattens a load/compile error tree into diagnostics. Unknown
// error shapes become fragment-less error diagnostics, so nothing is
// silently dropped.
func FromError(err error, source SourceFunc) *Diagnostics {
	d := &Diagnostics{}
	if err == nil {
		return d
	}
	for _, leaf := range flatten(err) {
		d.Errors = append(d.Errors, convert(leaf, source))
	}
	return d
}

// flatten unpacks both multi-error flavors the engine produces: the loader
// accumulates with hashicorp/go-multierror, the compiler with
// go.uber.org/multierr.
func flatten(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []error
		for _, e := range merr.WrappedErrors() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	if errs := multierr.Errors(err); len(errs) > 1 {
		var out []error
		for _, e := range errs {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

func convert(err error, source SourceFunc) Diagnostic {
	var (
		missing   *loader.MissingIncludeError
		cyclic    *loader.CyclicIncludeError
		undefined *compile.UndefinedReferenceError
		unknown   *compile.UnknownCategoryError
		invalid   *compile.InvalidPatternError
		parse     *grammar.ParseError
	)

	switch {
	case errors.As(err, &missing):
		return anchored(missing.IncludedFrom, missing.Error(), missing.Position, source)
	case errors.As(err, &cyclic):
		fragment := ""
		if len(cyclic.Chain) > 0 {
			fragment = cyclic.Chain[0]
		}
		return Diagnostic{Fragment: fragment, Message: cyclic.Error(), Severity: Error}
	case errors.As(err, &undefined):
		return anchored(undefined.Fragment, undefined.Error(), undefined.Position, source)
	case errors.As(err, &unknown):
		return anchored(unknown.Fragment, unknown.Error(), unknown.Position, source)
	case errors.As(err, &invalid):
		return anchored(invalid.Fragment, invalid.Error(), invalid.Position, source)
	case errors.As(err, &parse):
		return anchored(parse.Fragment, parse.Error(), parse.Position, source)
	default:
		return Diagnostic{Message: err.Error(), Severity: Error}
	}
}

func anchored(fragment, message string, pos position.RawPosition, source SourceFunc) Diagnostic {
	d := Diagnostic{Fragment: fragment, Message: message, Severity: Error}
	if source != nil {
		if text, ok := source(fragment); ok {
			d.Range = pos.GetRange(text)
		}
	}
	return d
}

// Formatter renders diagnostics for an output consumer.
type Formatter interface {
	Format(d *Diagnostics) ([]byte, error)
}

// JSONFormatter renders diagnostics as a flat JSON array with zero-based
// line/character ranges, the shape editor integrations expect.
type JSONFormatter struct{}

type jsonPlace struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type jsonDiagnostic struct {
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	Fragment string    `json:"fragment,omitempty"`
	Start    jsonPlace `json:"start"`
	End      jsonPlace `json:"end"`
}

func (JSONFormatter) Format(d *Diagnostics) ([]byte, error) {
	if d == nil {
		return nil, errors.New("diagnostics is nil")
	}

	out := make([]jsonDiagnostic, 0, len(d.Errors)+len(d.Warnings)+len(d.Hints))
	emit := func(list []Diagnostic) {
		for _, diag := range list {
			out = append(out, jsonDiagnostic{
				Severity: string(diag.Severity),
				Message:  diag.Message,
				Fragment: diag.Fragment,
				Start:    jsonPlace{Line: diag.Range.Start.Line, Character: diag.Range.Start.Character},
				End:      jsonPlace{Line: diag.Range.End.Line, Character: diag.Range.End.Character},
			})
		}
	}
	emit(d.Errors)
	emit(d.Warnings)
	emit(d.Hints)

	return json.Marshal(out)
}

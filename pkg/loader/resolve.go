// Package loader resolves grammar files and their transitive includes into
// flattened declaration sets and caches the compiled results process-wide.
package loader

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"
	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/grammar"
	"github.com/editkit/hilite/pkg/position"
)

const maxSuggestions = 3

// Resolve loads the named grammar and expands its include closure
// depth-first, splicing each included fragment's declarations in place of
// the include statement. Statement order across the closure is preserved:
// it carries category precedence.
func Resolve(ctx context.Context, reg Registry, name string) (*grammar.Resolved, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("grammar", name).Msg("resolving grammar")

	r := &resolver{
		ctx:    ctx,
		reg:    reg,
		active: make(map[string]bool),
		done:   make(map[string]bool),
		files:  make(map[string]*grammar.File),
	}

	if err := r.expand(name, "", position.RawPosition{}); err != nil {
		return nil, err
	}

	logger.Debug().Str("grammar", name).
		Int("fragments", len(r.done)).
		Int("statements", len(r.statements)).
		Msg("resolved grammar")

	return &grammar.Resolved{File: r.files[name], Statements: r.statements}, nil
}

type resolver struct {
	ctx   context.Context
	reg   Registry
	files map[string]*grammar.File

	active map[string]bool // fragments currently being expanded
	chain  []string        // expansion stack, for cycle reporting
	done   map[string]bool

	statements []grammar.ResolvedStatement
}

func (r *resolver) expand(name, from string, pos position.RawPosition) error {
	if r.active[name] {
		chain := append(append([]string{}, r.chain...), name)
		return &CyclicIncludeError{Chain: chain}
	}
	// A fragment reachable on several non-cyclic paths is expanded once, at
	// its first occurrence, and skipped after that.
	if r.done[name] {
		return nil
	}

	src, err := r.reg.Source(r.ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &MissingIncludeError{
				Fragment:     name,
				IncludedFrom: from,
				Position:     pos,
				Suggestions:  r.suggest(name),
			}
		}
		return errors.Errorf("loading fragment %q: %w", name, err)
	}

	file, err := grammar.Parse(name, src)
	if err != nil {
		return errors.Errorf("parsing fragment %q: %w", name, err)
	}
	r.files[name] = file

	r.active[name] = true
	r.chain = append(r.chain, name)
	defer func() {
		delete(r.active, name)
		r.chain = r.chain[:len(r.chain)-1]
		r.done[name] = true
	}()

	var errs *multierror.Error
	for _, st := range file.Statements {
		inc, ok := st.(*grammar.Include)
		if !ok {
			r.statements = append(r.statements, grammar.ResolvedStatement{
				Fragment:  name,
				Source:    string(src),
				Statement: st,
			})
			continue
		}
		if err := r.expand(inc.Fragment, name, inc.Pos()); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// suggest returns registry names close to the missing one, for "did you
// mean" hints in load errors.
func (r *resolver) suggest(name string) []string {
	names, err := r.reg.Names(r.ctx)
	if err != nil {
		return nil
	}
	matches := fuzzy.Find(name, names)
	if len(matches) > maxSuggestions {
		matches = matches[:maxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Str
	}
	return out
}

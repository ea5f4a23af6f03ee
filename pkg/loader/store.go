package loader

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/editkit/hilite/pkg/compile"
	"github.com/editkit/hilite/pkg/grammar"
)

// Store is the process-wide cache of compiled grammars, keyed by grammar
// identity. Reads share immutable compiled grammars freely; a first load of
// an identity compiles exactly once even under concurrent callers.
type Store struct {
	reg   Registry
	group singleflight.Group

	mu       sync.RWMutex
	grammars map[string]*compile.Grammar
}

func NewStore(reg Registry) *Store {
	return &Store{
		reg:      reg,
		grammars: make(map[string]*compile.Grammar),
	}
}

// Load returns the compiled grammar for the given identity, compiling and
// caching it on first use. Load and compile failures are terminal for the
// identity: no partially compiled grammar is ever cached or returned, and a
// later Load retries from the registry.
func (s *Store) Load(ctx context.Context, name string) (*compile.Grammar, error) {
	s.mu.RLock()
	g, ok := s.grammars[name]
	s.mu.RUnlock()
	if ok {
		return g, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		s.mu.RLock()
		g, ok := s.grammars[name]
		s.mu.RUnlock()
		if ok {
			return g, nil
		}

		res, err := Resolve(ctx, s.reg, name)
		if err != nil {
			return nil, err
		}
		compiled, err := compile.New(ctx, res)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.grammars[name] = compiled
		s.mu.Unlock()

		zerolog.Ctx(ctx).Debug().Str("grammar", name).Msg("cached compiled grammar")
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compile.Grammar), nil
}

// Reload drops any cached grammar for the identity and loads it fresh.
func (s *Store) Reload(ctx context.Context, name string) (*compile.Grammar, error) {
	s.Invalidate(name)
	return s.Load(ctx, name)
}

// Invalidate drops the cached grammar for the identity, if any.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	delete(s.grammars, name)
	s.mu.Unlock()
}

// Names lists the grammar identities the backing registry can serve.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	return s.reg.Names(ctx)
}

// Metadata parses the named grammar file and returns its header metadata
// without resolving includes or compiling. Useful for grammar-selection
// components, which this engine otherwise does not implement.
func (s *Store) Metadata(ctx context.Context, name string) (*grammar.File, error) {
	src, err := s.reg.Source(ctx, name)
	if err != nil {
		return nil, err
	}
	return grammar.Parse(name, src)
}

// ByExtension returns the names of grammars whose @matchext list contains
// the extension. A leading dot on ext is ignored. Pure metadata passthrough;
// selection policy is the caller's.
func (s *Store) ByExtension(ctx context.Context, ext string) ([]string, error) {
	ext = strings.TrimPrefix(ext, ".")
	return s.byMetadata(ctx, func(f *grammar.File) []string { return f.Extensions }, ext)
}

// ByProgram returns the names of grammars whose @matchprogram list contains
// the program name.
func (s *Store) ByProgram(ctx context.Context, program string) ([]string, error) {
	return s.byMetadata(ctx, func(f *grammar.File) []string { return f.Programs }, program)
}

func (s *Store) byMetadata(ctx context.Context, field func(*grammar.File) []string, want string) ([]string, error) {
	names, err := s.reg.Names(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		f, err := s.Metadata(ctx, name)
		if err != nil {
			// Malformed grammars surface when loaded, not when listed.
			continue
		}
		for _, have := range field(f) {
			if have == want {
				out = append(out, name)
				break
			}
		}
	}
	return out, nil
}

package loader

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// ErrNotFound is returned by a Registry when no fragment has the requested
// name.
var ErrNotFound = errors.New("grammar fragment not found")

// Registry provides grammar fragment sources by name. Implementations must
// be safe for concurrent use once constructed.
type Registry interface {
	// Source returns the raw text of the named fragment. It returns an
	// error wrapping ErrNotFound when the name is unknown.
	Source(ctx context.Context, name string) ([]byte, error)

	// Names lists every fragment name the registry can serve.
	Names(ctx context.Context) ([]string, error)
}

// MapRegistry serves fragments from an in-memory map. It is the registry of
// choice for tests and for embedded grammar sets.
type MapRegistry struct {
	fragments map[string]string
}

func NewMapRegistry(fragments map[string]string) *MapRegistry {
	copied := make(map[string]string, len(fragments))
	for name, src := range fragments {
		copied[name] = src
	}
	return &MapRegistry{fragments: copied}
}

func (r *MapRegistry) Source(ctx context.Context, name string) ([]byte, error) {
	src, ok := r.fragments[name]
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotFound, name)
	}
	return []byte(src), nil
}

func (r *MapRegistry) Names(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(r.fragments))
	for name := range r.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FSRegistry serves fragments from grammar files under a directory root.
// Fragment names are file base names without extension; files are discovered
// with a doublestar glob so grammar sets may be organized in subdirectories.
type FSRegistry struct {
	fsys    afero.Fs
	root    string
	pattern string

	once  sync.Once
	index map[string]string // fragment name -> path
	err   error
}

// NewFSRegistry discovers "**/*.lang" files under root.
func NewFSRegistry(fsys afero.Fs, root string) *FSRegistry {
	return NewFSRegistryGlob(fsys, root, "**/*.lang")
}

// NewFSRegistryGlob is NewFSRegistry with a custom doublestar pattern,
// matched against paths relative to root.
func NewFSRegistryGlob(fsys afero.Fs, root, pattern string) *FSRegistry {
	return &FSRegistry{fsys: fsys, root: root, pattern: pattern}
}

func (r *FSRegistry) load() (map[string]string, error) {
	r.once.Do(func() {
		index := make(map[string]string)
		r.err = afero.Walk(r.fsys, r.root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(r.root, path)
			if err != nil {
				return err
			}
			ok, err := doublestar.Match(r.pattern, filepath.ToSlash(rel))
			if err != nil {
				return errors.Errorf("matching %q against %q: %w", rel, r.pattern, err)
			}
			if !ok {
				return nil
			}
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, dup := index[name]; !dup {
				index[name] = path
			}
			return nil
		})
		r.index = index
	})
	return r.index, r.err
}

func (r *FSRegistry) Source(ctx context.Context, name string) ([]byte, error) {
	index, err := r.load()
	if err != nil {
		return nil, errors.Errorf("walking grammar directory %s: %w", r.root, err)
	}
	path, ok := index[name]
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrNotFound, name)
	}
	src, err := afero.ReadFile(r.fsys, path)
	if err != nil {
		return nil, errors.Errorf("reading grammar file %s: %w", path, err)
	}
	return src, nil
}

func (r *FSRegistry) Names(ctx context.Context) ([]string, error) {
	index, err := r.load()
	if err != nil {
		return nil, errors.Errorf("walking grammar directory %s: %w", r.root, err)
	}
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

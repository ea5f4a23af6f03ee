// Package bundle loads grammar fragment sets distributed as tar.gz
// archives, the form grammar collections ship in for editor releases.
package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/editkit/hilite/pkg/loader"
)

// LoadOptions configures bundle extraction.
type LoadOptions struct {
	// Extension selects the grammar files inside the archive.
	// Defaults to ".lang".
	Extension string

	// Filter skips archive entries when it returns false. Applied after
	// the extension check.
	Filter func(header *tar.Header) bool
}

// Registry extracts every grammar file from a tar.gz archive and returns a
// registry serving them. Fragment names are archive base names without
// extension, so "fragments/c_comment.lang" is included as "c_comment".
func Registry(data []byte) (*loader.MapRegistry, error) {
	return RegistryWithOptions(data, LoadOptions{})
}

// RegistryWithOptions is Registry with custom options.
func RegistryWithOptions(data []byte, opts LoadOptions) (*loader.MapRegistry, error) {
	if opts.Extension == "" {
		opts.Extension = ".lang"
	}

	gzr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	fragments := make(map[string]string)
	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}
		base := path.Base(header.Name)
		if !strings.HasSuffix(base, opts.Extension) {
			continue
		}
		if opts.Filter != nil && !opts.Filter(header) {
			continue
		}

		name := strings.TrimSuffix(base, opts.Extension)
		if _, exists := fragments[name]; exists {
			return nil, errors.Errorf("fragment collision: %s declared twice in bundle", name)
		}

		src, err := io.ReadAll(tr)
		if err != nil {
			return nil, errors.Errorf("reading bundle entry %s: %w", header.Name, err)
		}
		fragments[name] = string(src)
	}

	return loader.NewMapRegistry(fragments), nil
}

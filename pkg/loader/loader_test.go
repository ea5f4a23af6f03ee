package loader_test

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/editkit/hilite/pkg/grammar"
	"github.com/editkit/hilite/pkg/loader"
)

func testContext() context.Context {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	return logger.WithContext(context.Background())
}

func TestResolve(t *testing.T) {
	ctx := testContext()

	t.Run("test_include_expansion_preserves_order", func(t *testing.T) {
		reg := loader.NewMapRegistry(map[string]string{
			"c": "keyword = \"if\"\ninclude \"c_comment\"\nsymbols = \"=\"\n",
			"c_comment": "comment = \"//\"\n",
		})

		res, err := loader.Resolve(ctx, reg, "c")
		require.NoError(t, err, "resolution should succeed")
		require.Len(t, res.Statements, 3)

		first := res.Statements[0].Statement.(*grammar.Declaration)
		second := res.Statements[1].Statement.(*grammar.Declaration)
		third := res.Statements[2].Statement.(*grammar.Declaration)
		assert.Equal(t, grammar.Keyword, first.Category)
		assert.Equal(t, grammar.Comment, second.Category, "include expands in place")
		assert.Equal(t, grammar.Symbols, third.Category)

		assert.Equal(t, "c_comment", res.Statements[1].Fragment, "origin fragment is tracked")
		assert.Equal(t, "c", res.File.Name, "metadata comes from the root file")
	})

	t.Run("test_diamond_include_expands_once", func(t *testing.T) {
		reg := loader.NewMapRegistry(map[string]string{
			"root":   "include \"a\"\ninclude \"b\"\n",
			"a":      "include \"shared\"\nkeyword = \"if\"\n",
			"b":      "include \"shared\"\nsymbols = \"=\"\n",
			"shared": "comment = \"//\"\n",
		})

		res, err := loader.Resolve(ctx, reg, "root")
		require.NoError(t, err)

		var comments int
		for _, rs := range res.Statements {
			if decl, ok := rs.Statement.(*grammar.Declaration); ok && decl.Category == grammar.Comment {
				comments++
			}
		}
		assert.Equal(t, 1, comments, "a fragment shared by two non-cyclic paths expands once")
	})

	t.Run("test_missing_include", func(t *testing.T) {
		reg := loader.NewMapRegistry(map[string]string{
			"c":         "include \"c_commnt\"\n",
			"c_comment": "comment = \"//\"\n",
		})

		_, err := loader.Resolve(ctx, reg, "c")
		require.Error(t, err)

		var missing *loader.MissingIncludeError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "c_commnt", missing.Fragment)
		assert.Equal(t, "c", missing.IncludedFrom)
		assert.Contains(t, missing.Suggestions, "c_comment", "fuzzy suggestions should find the typo")
	})

	t.Run("test_missing_root_grammar", func(t *testing.T) {
		reg := loader.NewMapRegistry(nil)
		_, err := loader.Resolve(ctx, reg, "nope")
		var missing *loader.MissingIncludeError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "", missing.IncludedFrom)
	})

	t.Run("test_cyclic_include", func(t *testing.T) {
		reg := loader.NewMapRegistry(map[string]string{
			"a": "include \"b\"\n",
			"b": "include \"a\"\n",
		})

		_, err := loader.Resolve(ctx, reg, "a")
		require.Error(t, err)

		var cyclic *loader.CyclicIncludeError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []string{"a", "b", "a"}, cyclic.Chain)
	})

	t.Run("test_self_include", func(t *testing.T) {
		reg := loader.NewMapRegistry(map[string]string{
			"a": "include \"a\"\n",
		})

		_, err := loader.Resolve(ctx, reg, "a")
		var cyclic *loader.CyclicIncludeError
		require.ErrorAs(t, err, &cyclic)
		assert.Equal(t, []string{"a", "a"}, cyclic.Chain)
	})
}

func TestFSRegistry(t *testing.T) {
	ctx := testContext()

	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "grammars/c.lang", []byte("@title C\nkeyword = \"if\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "grammars/fragments/c_comment.lang", []byte("comment = \"//\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "grammars/README.md", []byte("not a grammar"), 0o644))

	reg := loader.NewFSRegistry(fsys, "grammars")

	t.Run("test_names_are_glob_filtered", func(t *testing.T) {
		names, err := reg.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "c_comment"}, names, "only *.lang files become fragments")
	})

	t.Run("test_source_by_fragment_name", func(t *testing.T) {
		src, err := reg.Source(ctx, "c_comment")
		require.NoError(t, err)
		assert.Contains(t, string(src), "comment")
	})

	t.Run("test_unknown_fragment_wraps_not_found", func(t *testing.T) {
		_, err := reg.Source(ctx, "zig")
		require.ErrorIs(t, err, loader.ErrNotFound)
	})
}

func TestStore(t *testing.T) {
	ctx := testContext()

	newRegistry := func() loader.Registry {
		return loader.NewMapRegistry(map[string]string{
			"c": "@title C\n@matchext c, h\n@matchprogram tcc\nkeyword = \"if|else\"\n",
			"go": "@title Go\n@matchext go\nkeyword = \"func\"\n",
		})
	}

	t.Run("test_load_is_cached", func(t *testing.T) {
		store := loader.NewStore(newRegistry())
		g1, err := store.Load(ctx, "c")
		require.NoError(t, err)
		g2, err := store.Load(ctx, "c")
		require.NoError(t, err)
		assert.Same(t, g1, g2, "second load must reuse the cached compiled grammar")
	})

	t.Run("test_reload_recompiles", func(t *testing.T) {
		store := loader.NewStore(newRegistry())
		g1, err := store.Load(ctx, "c")
		require.NoError(t, err)
		g2, err := store.Reload(ctx, "c")
		require.NoError(t, err)
		assert.NotSame(t, g1, g2, "reload must drop the cached grammar")
	})

	t.Run("test_concurrent_loads_share_one_grammar", func(t *testing.T) {
		store := loader.NewStore(newRegistry())

		grammars := make([]any, 8)
		eg, egctx := errgroup.WithContext(ctx)
		for i := range grammars {
			eg.Go(func() error {
				g, err := store.Load(egctx, "c")
				grammars[i] = g
				return err
			})
		}
		require.NoError(t, eg.Wait())
		for i := 1; i < len(grammars); i++ {
			assert.Same(t, grammars[0], grammars[i], "all loaders must observe the same compiled grammar")
		}
	})

	t.Run("test_load_error_is_not_cached", func(t *testing.T) {
		store := loader.NewStore(loader.NewMapRegistry(map[string]string{
			"bad": "wat = \"?\"\n",
		}))
		_, err := store.Load(ctx, "bad")
		require.Error(t, err, "unknown category must fail compilation")
		_, err = store.Load(ctx, "bad")
		require.Error(t, err, "failures stay terminal on retry")
	})

	t.Run("test_metadata_lookup", func(t *testing.T) {
		store := loader.NewStore(newRegistry())

		byExt, err := store.ByExtension(ctx, ".h")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, byExt)

		byProg, err := store.ByProgram(ctx, "tcc")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, byProg)

		names, err := store.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "go"}, names)
	})
}

package bundle_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/editkit/hilite/pkg/bundle"
	"github.com/editkit/hilite/pkg/loader"
)

func makeBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}

func TestRegistry(t *testing.T) {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)
	ctx := logger.WithContext(context.Background())

	t.Run("test_bundle_fragments_load_and_compile", func(t *testing.T) {
		data := makeBundle(t, map[string]string{
			"grammars/c.lang":                   "keyword = \"if\"\ninclude \"c_comment\"\n",
			"grammars/fragments/c_comment.lang": "comment = \"//\"\n",
			"grammars/LICENSE":                  "not a grammar",
		})

		reg, err := bundle.Registry(data)
		require.NoError(t, err)

		names, err := reg.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "c_comment"}, names)

		_, err = loader.NewStore(reg).Load(ctx, "c")
		require.NoError(t, err, "bundled grammars should resolve includes against each other")
	})

	t.Run("test_fragment_collision_fails", func(t *testing.T) {
		data := makeBundle(t, map[string]string{
			"a/c.lang": "keyword = \"if\"\n",
			"b/c.lang": "keyword = \"else\"\n",
		})

		_, err := bundle.Registry(data)
		require.Error(t, err, "two entries with the same fragment name are ambiguous")
	})

	t.Run("test_custom_extension", func(t *testing.T) {
		data := makeBundle(t, map[string]string{
			"go.grammar": "keyword = \"func\"\n",
		})

		reg, err := bundle.RegistryWithOptions(data, bundle.LoadOptions{Extension: ".grammar"})
		require.NoError(t, err)
		names, err := reg.Names(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"go"}, names)
	})

	t.Run("test_garbage_input_fails", func(t *testing.T) {
		_, err := bundle.Registry([]byte("not a tarball"))
		require.Error(t, err)
	})
}

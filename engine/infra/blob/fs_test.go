package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normabase/normabase/engine/infra/blob"
)

func newFSFixture(t *testing.T) (*blob.FSGetter, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"federal/BR/leis/lei_14133_2021_federal_br/source.pdf":         "pdf bytes",
		"federal/BR/leis/lei_8666_1993_federal_br/source.html":         "<html></html>",
		"federal/BR/decretos/decreto_10024_2019_federal_br/source.pdf": "decreto",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	getter, err := blob.NewFSGetter(root)
	require.NoError(t, err)
	return getter, root
}

func TestFSGetter(t *testing.T) {
	t.Run("Should read an object by its key", func(t *testing.T) {
		getter, _ := newFSFixture(t)
		data, err := getter.GetBytes(context.Background(),
			"federal/BR/leis/lei_14133_2021_federal_br/source.pdf")
		require.NoError(t, err)
		assert.Equal(t, "pdf bytes", string(data))
	})
	t.Run("Should fail on a missing key", func(t *testing.T) {
		getter, _ := newFSFixture(t)
		_, err := getter.GetBytes(context.Background(), "federal/BR/leis/missing.pdf")
		assert.Error(t, err)
	})
	t.Run("Should list keys under a prefix in sorted order", func(t *testing.T) {
		getter, _ := newFSFixture(t)
		keys, err := getter.List(context.Background(), "federal/BR/leis/")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"federal/BR/leis/lei_14133_2021_federal_br/source.pdf",
			"federal/BR/leis/lei_8666_1993_federal_br/source.html",
		}, keys)
	})
	t.Run("Should list everything for an empty prefix", func(t *testing.T) {
		getter, _ := newFSFixture(t)
		keys, err := getter.List(context.Background(), "")
		require.NoError(t, err)
		assert.Len(t, keys, 3)
	})
	t.Run("Should reject keys that escape the root", func(t *testing.T) {
		getter, root := newFSFixture(t)
		outside := filepath.Join(filepath.Dir(root), "secret.txt")
		require.NoError(t, os.WriteFile(outside, []byte("nope"), 0o644))
		_, err := getter.GetBytes(context.Background(), "../secret.txt")
		assert.ErrorContains(t, err, "escapes store root")
		_, err = getter.GetBytes(context.Background(), outside)
		assert.ErrorContains(t, err, "escapes store root")
	})
	t.Run("Should honor context cancellation", func(t *testing.T) {
		getter, _ := newFSFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := getter.GetBytes(ctx, "federal/BR/leis/lei_8666_1993_federal_br/source.html")
		assert.ErrorIs(t, err, context.Canceled)
	})
	t.Run("Should require an existing directory root", func(t *testing.T) {
		_, err := blob.NewFSGetter(filepath.Join(t.TempDir(), "missing"))
		assert.Error(t, err)
	})
}

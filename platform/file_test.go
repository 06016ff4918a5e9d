package platform

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	uri, err := FileURI(filepath.Join(dir, "output", "model.tar.gz"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "file://"), uri)

	store := NewFileStore()
	require.NoError(t, store.Upload(context.Background(), uri, strings.NewReader("archive")))

	dst, err := os.Create(filepath.Join(dir, "copy.tar.gz"))
	require.NoError(t, err)
	defer dst.Close()

	n, err := store.Download(context.Background(), uri, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	got, err := os.ReadFile(dst.Name())
	require.NoError(t, err)
	assert.Equal(t, "archive", string(got))
}

func TestFileStoreErrors(t *testing.T) {
	store := NewFileStore()
	dst, err := os.Create(filepath.Join(t.TempDir(), "dst"))
	require.NoError(t, err)
	defer dst.Close()

	_, err = store.Download(context.Background(), "s3://bucket/key", dst)
	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "uri", vErr.ParamName)

	missing := filepath.Join(t.TempDir(), "missing")
	uri, err := FileURI(missing)
	require.NoError(t, err)
	_, err = store.Download(context.Background(), uri, dst)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.Upload(ctx, uri, strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, missing)
}

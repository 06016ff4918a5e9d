package platform

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

const fileScheme = "file://"

// FileStore implements ObjectStore for file:// URIs on the local disk.
// Local training reports its model archive through it so the trainer can
// fetch artifacts the same way for every fitter.
type FileStore struct{}

// NewFileStore returns a FileStore.
func NewFileStore() *FileStore {
	return &FileStore{}
}

// Upload writes body to the file named by uri, creating parent directories.
func (s *FileStore) Upload(ctx context.Context, uri string, body io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := ParseFileURI(uri)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", uri)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", uri)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", uri)
		}
	}()
	_, err = io.Copy(f, body)
	return errors.Wrapf(err, "write %s", uri)
}

// Download copies the file named by uri into w.
func (s *FileStore) Download(ctx context.Context, uri string, w io.WriterAt) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	path, err := ParseFileURI(uri)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", uri)
	}
	defer f.Close()

	n, err := io.Copy(io.NewOffsetWriter(w, 0), f)
	if err != nil {
		return n, errors.Wrapf(err, "read %s", uri)
	}
	return n, nil
}

// FileURI returns the file:// URI of path made absolute.
func FileURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	return fileScheme + filepath.ToSlash(abs), nil
}

// ParseFileURI returns the local path of a file:// URI.
func ParseFileURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, fileScheme)
	if !ok || rest == "" {
		return "", errors.NewValidationError("uri", "must start with file:// and name a file", uri)
	}
	return filepath.FromSlash(rest), nil
}

package platform

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/klauspost/compress/gzip"
)

// ModelFileName is the booster file inside a model.tar.gz written by the
// SageMaker XGBoost container.
const ModelFileName = "xgboost-model"

// PackDir writes every regular file under dir to w as a gzip-compressed tar
// archive with paths relative to dir. This is the sourcedir.tar.gz layout
// the framework containers expect for script mode.
func PackDir(dir string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "pack %s", dir)
	}
	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "close tar")
	}
	return errors.Wrap(gz.Close(), "close gzip")
}

// ExtractFile copies the archive member whose base name is name to w.
func ExtractFile(r io.Reader, name string, w io.Writer) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "open gzip")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return errors.Newf("%s not found in archive", name)
		}
		if err != nil {
			return errors.Wrap(err, "read tar")
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != name {
			continue
		}
		if _, err := io.Copy(w, tr); err != nil {
			return errors.Wrapf(err, "extract %s", name)
		}
		return nil
	}
}

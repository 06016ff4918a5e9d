package training

import (
	"bufio"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Channel file names inside the work directory and on S3.
const (
	TrainFile      = "train.csv"
	ValidationFile = "validation.csv"
)

// WriteChannel writes the rows idx of d as headerless CSV with the label in
// the first column, which is the layout the XGBoost container reads for
// text/csv channels. NaN features are written as empty cells.
func WriteChannel(w io.Writer, d *Dataset, idx []int) error {
	_, cols := d.X.Dims()
	cw := csv.NewWriter(w)
	record := make([]string, cols+1)
	for _, i := range idx {
		record[0] = formatFloat(d.Y.AtVec(i))
		for j := 0; j < cols; j++ {
			record[j+1] = formatFloat(d.X.At(i, j))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write channel")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "write channel")
}

// WriteChannelFile writes a channel to path.
func WriteChannelFile(path string, d *Dataset, idx []int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := WriteChannel(bw, d, idx); err != nil {
		return err
	}
	return errors.Wrapf(bw.Flush(), "write %s", path)
}

// ReadChannel parses a channel written by WriteChannel. Empty feature
// cells become NaN. FeatureNames of the result is nil since channels carry
// no header.
func ReadChannel(r io.Reader) (*Dataset, error) {
	const op = "channel"

	records, err := csv.NewReader(bufio.NewReader(r)).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read channel")
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no rows", op)
	}
	cols := len(records[0]) - 1
	if cols < 1 {
		return nil, errors.NewValidationError("features", "channel has no feature columns", records[0])
	}

	X := mat.NewDense(len(records), cols, nil)
	y := mat.NewVecDense(len(records), nil)
	for i, rec := range records {
		label, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, errors.NewParseError(op, i, "label", rec[0], err)
		}
		y.SetVec(i, label)
		for j, cell := range rec[1:] {
			if cell == "" {
				X.Set(i, j, math.NaN())
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, errors.NewParseError(op, i, strconv.Itoa(j+1), cell, err)
			}
			X.Set(i, j, v)
		}
	}
	return &Dataset{X: X, Y: y}, nil
}

// ReadChannelFile reads a channel from path.
func ReadChannelFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	d, err := ReadChannel(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return d, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

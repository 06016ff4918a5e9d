// Package frame holds a header plus string rows read from a CSV file.
//
// Cells keep the exact text that was read so that columns a step does not
// touch are written back unchanged. Missing-value detection follows the
// pandas read_csv defaults, which is what the upstream datasets were
// prepared with.
package frame

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// naTokens are the strings read as missing values.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell is a missing value.
func IsMissing(cell string) bool {
	_, ok := naTokens[cell]
	return ok
}

// Table is a header and rows of equal width.
type Table struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex returns the position of the first column named name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.Header)
}

// Drop returns a new table without the named columns. Every name must exist.
func (t *Table) Drop(op string, names ...string) (*Table, error) {
	drop := make(map[int]bool, len(names))
	for _, name := range names {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, errors.NewMissingColumnError(op, name)
		}
		drop[idx] = true
	}

	keep := make([]int, 0, len(t.Header)-len(drop))
	for i := range t.Header {
		if !drop[i] {
			keep = append(keep, i)
		}
	}

	out := &Table{
		Header: project(t.Header, keep),
		Rows:   make([][]string, len(t.Rows)),
	}
	for r, row := range t.Rows {
		out.Rows[r] = project(row, keep)
	}
	return out, nil
}

// DropMissing returns a new table without rows holding a missing value in
// any column, and the number of rows removed.
func (t *Table) DropMissing() (*Table, int) {
	out := &Table{Header: t.Header, Rows: make([][]string, 0, len(t.Rows))}
	for _, row := range t.Rows {
		if !hasMissing(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, len(t.Rows) - len(out.Rows)
}

func hasMissing(row []string) bool {
	for _, cell := range row {
		if IsMissing(cell) {
			return true
		}
	}
	return false
}

func project(row []string, keep []int) []string {
	out := make([]string, len(keep))
	for i, idx := range keep {
		out[i] = row[idx]
	}
	return out
}

// Read parses CSV with a header line. Rows shorter than the header are
// padded with missing cells; longer rows are an error. A leading UTF-8 byte
// order mark is dropped and stray quotes inside unquoted fields are kept
// as text.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "no columns to parse")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Header: header}
	for line := 0; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", line)
		}
		if len(rec) > len(header) {
			return nil, errors.NewParseError("read csv", line, "", strings.Join(rec, ","),
				errors.Newf("expected %d fields, saw %d", len(header), len(rec)))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return t, nil
}

// Write emits the header and rows as CSV without a row index.
func Write(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write rows")
	}
	return nil
}

// WriteFile writes t to path, creating or truncating it.
func WriteFile(path string, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return Write(f, t)
}

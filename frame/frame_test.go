package frame

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	in := "a,b,c\n1,2,3\n4,,6\n7,8\n"
	tbl, err := Read(strings.NewReader(in))
	require.NoError(t, err)

	want := &Table{
		Header: []string{"a", "b", "c"},
		Rows: [][]string{
			{"1", "2", "3"},
			{"4", "", "6"},
			{"7", "8", ""},
		},
	}
	if diff := cmp.Diff(want, tbl); diff != "" {
		t.Errorf("Read() mismatch (-want +got):\n%s", diff)
	}
}

func TestReadExportQuirks(t *testing.T) {
	t.Run("byte order mark", func(t *testing.T) {
		tbl, err := Read(strings.NewReader("\ufeffLoanNr_ChkDgt,Name\n1000014003,ABC\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"LoanNr_ChkDgt", "Name"}, tbl.Header)
		assert.Equal(t, 0, tbl.ColumnIndex("LoanNr_ChkDgt"))
	})

	t.Run("bare quote in unquoted field", func(t *testing.T) {
		in := "LoanNr_ChkDgt,Name,NAICS\n1,JOE \"THE PLUMBER\" LLC,451120\n2,\"QUOTED, INC\",0\n"
		tbl, err := Read(strings.NewReader(in))
		require.NoError(t, err)

		want := [][]string{
			{"1", `JOE "THE PLUMBER" LLC`, "451120"},
			{"2", "QUOTED, INC", "0"},
		}
		if diff := cmp.Diff(want, tbl.Rows); diff != "" {
			t.Errorf("Read() rows mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestReadErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Read(strings.NewReader(""))
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("row wider than header", func(t *testing.T) {
		_, err := Read(strings.NewReader("a,b\n1,2,3\n"))
		var parseErr *errors.ParseError
		require.True(t, errors.As(err, &parseErr))
		assert.Equal(t, 0, parseErr.Row)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
}

func TestIsMissing(t *testing.T) {
	for _, cell := range []string{"", "NA", "NaN", "nan", "NULL", "null", "None", "N/A", "#N/A", "<NA>"} {
		assert.True(t, IsMissing(cell), "%q should be missing", cell)
	}
	for _, cell := range []string{"0", " ", "none", "Na", "453210", "-"} {
		assert.False(t, IsMissing(cell), "%q should not be missing", cell)
	}
}

func TestDrop(t *testing.T) {
	tbl := &Table{
		Header: []string{"id", "name", "value", "flag"},
		Rows:   [][]string{{"1", "x", "10", "y"}, {"2", "z", "20", "n"}},
	}

	out, err := tbl.Drop("test", "name", "flag")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "value"}, out.Header)
	assert.Equal(t, [][]string{{"1", "10"}, {"2", "20"}}, out.Rows)
	assert.Equal(t, 4, tbl.NumCols(), "source table must be unchanged")

	_, err = tbl.Drop("test", "absent")
	var colErr *errors.MissingColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "absent", colErr.Column)
}

func TestDropMissing(t *testing.T) {
	tbl := &Table{
		Header: []string{"a", "b"},
		Rows:   [][]string{{"1", "2"}, {"NA", "3"}, {"4", ""}, {"5", "6"}},
	}
	out, dropped := tbl.DropMissing()
	assert.Equal(t, 2, dropped)
	assert.Equal(t, [][]string{{"1", "2"}, {"5", "6"}}, out.Rows)
}

func TestWriteRoundTrip(t *testing.T) {
	tbl := &Table{
		Header: []string{"Name", "City"},
		Rows:   [][]string{{"Acme, Inc.", "Boston"}, {`Say "hi"`, "NYC"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tbl))
	assert.Equal(t, "Name,City\n\"Acme, Inc.\",Boston\n\"Say \"\"hi\"\"\",NYC\n", buf.String())

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteFile(path, tbl))
	back, err := ReadFile(path)
	require.NoError(t, err)
	if diff := cmp.Diff(tbl, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

package training

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/YuminosukeSato/loanboost/frame"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteChannel(t *testing.T) {
	tbl := &frame.Table{
		Header: []string{"NAICS", "Term", "Default"},
		Rows: [][]string{
			{"45", "84", "0"},
			{"54", "", "1"},
			{"23", "0.25", "1"},
		},
	}
	ds, err := NewDataset(tbl, DefaultLabelColumn)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChannel(&buf, ds, []int{2, 0, 1}))
	assert.Equal(t, "1,23,0.25\n0,45,84\n1,54,\n", buf.String())
}

func TestReadChannel(t *testing.T) {
	ds, err := ReadChannel(strings.NewReader("1,23,0.25\n0,45,84\n1,54,\n"))
	require.NoError(t, err)

	rows, cols := ds.X.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []float64{1, 0, 1}, ds.Y.RawVector().Data)
	assert.Equal(t, 0.25, ds.X.At(0, 1))
	assert.Equal(t, 45.0, ds.X.At(1, 0))
	assert.True(t, math.IsNaN(ds.X.At(2, 1)))
	assert.Nil(t, ds.FeatureNames)
}

func TestReadChannelErrors(t *testing.T) {
	_, err := ReadChannel(strings.NewReader(""))
	assert.ErrorIs(t, err, errors.ErrEmptyData)

	_, err = ReadChannel(strings.NewReader("1,2\n0,x\n"))
	var pErr *errors.ParseError
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, 1, pErr.Row)
	assert.Equal(t, "x", pErr.Value)

	_, err = ReadChannel(strings.NewReader("1\n"))
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr), "got %v", err)
}

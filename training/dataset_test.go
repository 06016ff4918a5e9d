package training

import (
	"math"
	"strconv"
	"testing"

	"github.com/YuminosukeSato/loanboost/frame"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataset(t *testing.T) {
	tbl := &frame.Table{
		Header: []string{"NAICS", "Default", "Term"},
		Rows: [][]string{
			{"45", "0", "84"},
			{"54", "1", ""},
			{"23", "1", "36.5"},
		},
	}
	ds, err := NewDataset(tbl, DefaultLabelColumn)
	require.NoError(t, err)

	assert.Equal(t, []string{"NAICS", "Term"}, ds.FeatureNames)
	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []float64{0, 1, 1}, ds.Y.RawVector().Data)
	assert.Equal(t, 45.0, ds.X.At(0, 0))
	assert.True(t, math.IsNaN(ds.X.At(1, 1)))
	assert.Equal(t, 36.5, ds.X.At(2, 1))
	assert.InDelta(t, 2.0/3.0, ds.PositiveRate(nil), 1e-12)
	assert.Equal(t, 0.5, ds.PositiveRate([]int{0, 2}))
}

func TestNewDatasetMissingLabel(t *testing.T) {
	tbl := &frame.Table{Header: []string{"NAICS", "Term"}, Rows: [][]string{{"45", "84"}}}
	_, err := NewDataset(tbl, DefaultLabelColumn)

	var mcErr *errors.MissingColumnError
	require.True(t, errors.As(err, &mcErr), "got %v", err)
	assert.Equal(t, DefaultLabelColumn, mcErr.Column)
}

func TestNewDatasetErrors(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]string
		column string
	}{
		{"non-binary label", [][]string{{"45", "2"}}, "Default"},
		{"missing label", [][]string{{"45", ""}}, "Default"},
		{"text feature", [][]string{{"retail", "0"}}, "NAICS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &frame.Table{Header: []string{"NAICS", "Default"}, Rows: tt.rows}
			_, err := NewDataset(tbl, DefaultLabelColumn)

			var pErr *errors.ParseError
			require.True(t, errors.As(err, &pErr), "got %v", err)
			assert.Equal(t, tt.column, pErr.Column)
			assert.Equal(t, 0, pErr.Row)
		})
	}
}

func TestNewDatasetEmpty(t *testing.T) {
	_, err := NewDataset(&frame.Table{Header: []string{"NAICS", "Default"}}, DefaultLabelColumn)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	_, err = NewDataset(&frame.Table{Header: []string{"Default"}, Rows: [][]string{{"1"}}}, DefaultLabelColumn)
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestNewDatasetLargeTableParallel(t *testing.T) {
	n := parallelThreshold*2 + 17
	tbl := &frame.Table{Header: []string{"x", "Default"}}
	for i := 0; i < n; i++ {
		tbl.Rows = append(tbl.Rows, []string{strconv.Itoa(i), strconv.Itoa(i % 2)})
	}
	ds, err := NewDataset(tbl, DefaultLabelColumn)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.Equal(t, float64(i), ds.X.At(i, 0))
		require.Equal(t, float64(i%2), ds.Y.AtVec(i))
	}
}

// Package training fits the loan-default classifier.
//
// The local side loads the preprocessed table, splits it into training and
// validation rows and writes both in the CSV layout of the XGBoost
// container. Fitting itself is delegated to a Fitter; the production
// Fitter runs a SageMaker training job with the built-in XGBoost image.
package training

import (
	"math"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/loanboost/core/parallel"
	"github.com/YuminosukeSato/loanboost/frame"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultLabelColumn is the binary target.
const DefaultLabelColumn = "Default"

// 並列パースに切り替える行数の閾値
const parallelThreshold = 5000

// Dataset は特徴量行列とラベルベクトルの組
type Dataset struct {
	FeatureNames []string
	X            *mat.Dense    // 特徴量（欠損値はNaN）
	Y            *mat.VecDense // ラベル（0または1）
}

// NewDataset separates label from features. Labels must be 0 or 1;
// feature cells must parse as float64, missing cells become NaN.
func NewDataset(t *frame.Table, label string) (*Dataset, error) {
	const op = "dataset"

	labelIdx := t.ColumnIndex(label)
	if labelIdx < 0 {
		return nil, errors.NewMissingColumnError(op, label)
	}
	rows, cols := t.NumRows(), t.NumCols()-1
	if rows == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s: no rows", op)
	}
	if cols == 0 {
		return nil, errors.NewValidationError("features", "table has no feature columns", t.Header)
	}

	names := make([]string, 0, cols)
	for j, h := range t.Header {
		if j != labelIdx {
			names = append(names, h)
		}
	}

	X := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)

	// 各ワーカーは担当する行だけを書き込む
	err := parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) error {
		for i := start; i < end; i++ {
			row := t.Rows[i]
			v, err := parseLabel(row[labelIdx])
			if err != nil {
				return errors.NewParseError(op, i, label, row[labelIdx], err)
			}
			y.SetVec(i, v)

			j := 0
			for c, cell := range row {
				if c == labelIdx {
					continue
				}
				f, err := parseFeature(cell)
				if err != nil {
					return errors.NewParseError(op, i, t.Header[c], cell, err)
				}
				X.Set(i, j, f)
				j++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Dataset{FeatureNames: names, X: X, Y: y}, nil
}

// Rows returns the number of samples.
func (d *Dataset) Rows() int {
	r, _ := d.X.Dims()
	return r
}

// PositiveRate returns the mean label over the given rows, or over all rows
// when idx is empty.
func (d *Dataset) PositiveRate(idx []int) float64 {
	if len(idx) == 0 {
		return stat.Mean(d.Y.RawVector().Data[:d.Rows()], nil)
	}
	labels := make([]float64, len(idx))
	for k, i := range idx {
		labels[k] = d.Y.AtVec(i)
	}
	return stat.Mean(labels, nil)
}

func parseLabel(cell string) (float64, error) {
	if frame.IsMissing(cell) {
		return 0, errors.New("missing label")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, err
	}
	if v != 0 && v != 1 {
		return 0, errors.New("label must be 0 or 1")
	}
	return v, nil
}

func parseFeature(cell string) (float64, error) {
	if frame.IsMissing(cell) {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.TrimSpace(cell), 64)
}

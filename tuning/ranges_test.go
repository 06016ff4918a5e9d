package tuning

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRangesParameterRanges(t *testing.T) {
	r := DefaultRanges()
	require.NoError(t, r.Validate())

	pr := r.parameterRanges()
	require.Len(t, pr.ContinuousParameterRanges, 2)
	require.Len(t, pr.IntegerParameterRanges, 1)

	eta := pr.ContinuousParameterRanges[0]
	assert.Equal(t, "eta", aws.ToString(eta.Name))
	assert.Equal(t, "0", aws.ToString(eta.MinValue))
	assert.Equal(t, "1", aws.ToString(eta.MaxValue))

	mcw := pr.ContinuousParameterRanges[1]
	assert.Equal(t, "min_child_weight", aws.ToString(mcw.Name))
	assert.Equal(t, "1", aws.ToString(mcw.MinValue))
	assert.Equal(t, "10", aws.ToString(mcw.MaxValue))

	depth := pr.IntegerParameterRanges[0]
	assert.Equal(t, "max_depth", aws.ToString(depth.Name))
	assert.Equal(t, "1", aws.ToString(depth.MinValue))
	assert.Equal(t, "10", aws.ToString(depth.MaxValue))
}

func TestRangesValidate(t *testing.T) {
	tests := []struct {
		name   string
		ranges Ranges
	}{
		{"empty", Ranges{}},
		{"nil", nil},
		{"inverted", Ranges{"eta": {Kind: Continuous, Min: 1, Max: 0}}},
		{"fractional integer", Ranges{"max_depth": {Kind: Integer, Min: 1.5, Max: 10}}},
		{"nan bound", Ranges{"eta": {Kind: Continuous, Min: math.NaN(), Max: 1}}},
		{"empty name", Ranges{"": {Kind: Continuous, Min: 0, Max: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vErr *errors.ValidationError
			assert.True(t, errors.As(tt.ranges.Validate(), &vErr))
		})
	}
}

func TestRangesValidateSinglePoint(t *testing.T) {
	r := Ranges{"gamma": {Kind: Continuous, Min: 0.5, Max: 0.5}}
	assert.NoError(t, r.Validate())
}

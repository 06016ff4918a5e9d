package tuning

import (
	"math"
	"sort"
	"strconv"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

// Kind is the value domain of a tuned hyperparameter.
type Kind int

const (
	Continuous Kind = iota
	Integer
)

func (k Kind) String() string {
	if k == Integer {
		return "integer"
	}
	return "continuous"
}

// Range bounds one hyperparameter, both ends inclusive.
type Range struct {
	Kind Kind
	Min  float64
	Max  float64
}

// Ranges maps hyperparameter names to their search range.
type Ranges map[string]Range

// DefaultRanges returns the search space of the original sweep.
func DefaultRanges() Ranges {
	return Ranges{
		"eta":              {Kind: Continuous, Min: 0, Max: 1},
		"min_child_weight": {Kind: Continuous, Min: 1, Max: 10},
		"max_depth":        {Kind: Integer, Min: 1, Max: 10},
	}
}

// Validate checks that the space is non-empty and every range is ordered.
// Integer ranges must have integral bounds.
func (r Ranges) Validate() error {
	if len(r) == 0 {
		return errors.NewValidationError("ranges", "at least one hyperparameter range is required", len(r))
	}
	for _, name := range r.names() {
		rg := r[name]
		switch {
		case name == "":
			return errors.NewValidationError("ranges", "hyperparameter name must not be empty", name)
		case math.IsNaN(rg.Min) || math.IsNaN(rg.Max):
			return errors.NewValidationError(name, "bounds must be numbers", rg)
		case rg.Min > rg.Max:
			return errors.NewValidationError(name, "min must not exceed max", rg)
		case rg.Kind == Integer && (rg.Min != math.Trunc(rg.Min) || rg.Max != math.Trunc(rg.Max)):
			return errors.NewValidationError(name, "integer range needs integral bounds", rg)
		}
	}
	return nil
}

func (r Ranges) names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// parameterRanges converts r to the request shape, sorted by name.
func (r Ranges) parameterRanges() *types.ParameterRanges {
	out := &types.ParameterRanges{}
	for _, name := range r.names() {
		rg := r[name]
		switch rg.Kind {
		case Integer:
			out.IntegerParameterRanges = append(out.IntegerParameterRanges, types.IntegerParameterRange{
				Name:        aws.String(name),
				MinValue:    aws.String(strconv.FormatInt(int64(rg.Min), 10)),
				MaxValue:    aws.String(strconv.FormatInt(int64(rg.Max), 10)),
				ScalingType: types.HyperParameterScalingTypeAuto,
			})
		default:
			out.ContinuousParameterRanges = append(out.ContinuousParameterRanges, types.ContinuousParameterRange{
				Name:        aws.String(name),
				MinValue:    aws.String(strconv.FormatFloat(rg.Min, 'g', -1, 64)),
				MaxValue:    aws.String(strconv.FormatFloat(rg.Max, 'g', -1, 64)),
				ScalingType: types.HyperParameterScalingTypeAuto,
			})
		}
	}
	return out
}

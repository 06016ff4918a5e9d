package lightgbm

import (
	"math"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// ObjectiveFunction defines the interface for the boosting objectives.
// prediction is always the raw (untransformed) ensemble score.
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial raw score for this objective
	GetInitScore(targets []float64) float64

	// Transform maps a raw score to the output scale
	Transform(raw float64) float64

	// Name returns the name of the objective
	Name() string
}

// L2Objective implements L2 (Mean Squared Error) loss
type L2Objective struct{}

func NewL2Objective() *L2Objective {
	return &L2Objective{}
}

func (o *L2Objective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (o *L2Objective) CalculateHessian(prediction, target float64) float64 {
	return 1.0
}

func (o *L2Objective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

func (o *L2Objective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (o *L2Objective) Transform(raw float64) float64 {
	return raw
}

func (o *L2Objective) Name() string {
	return "regression"
}

// probability clipping bound for the log loss
const probEpsilon = 1e-15

// BinaryLogLossObjective implements the logistic loss on 0/1 targets.
type BinaryLogLossObjective struct{}

func NewBinaryLogLossObjective() *BinaryLogLossObjective {
	return &BinaryLogLossObjective{}
}

func (o *BinaryLogLossObjective) CalculateGradient(prediction, target float64) float64 {
	return sigmoid(prediction) - target
}

func (o *BinaryLogLossObjective) CalculateHessian(prediction, target float64) float64 {
	p := sigmoid(prediction)
	return math.Max(p*(1-p), probEpsilon)
}

func (o *BinaryLogLossObjective) CalculateLoss(prediction, target float64) float64 {
	p := math.Min(math.Max(sigmoid(prediction), probEpsilon), 1-probEpsilon)
	return -(target*math.Log(p) + (1-target)*math.Log(1-p))
}

// GetInitScore returns the log-odds of the positive rate.
func (o *BinaryLogLossObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0.0
	}
	pos := 0.0
	for _, t := range targets {
		pos += t
	}
	rate := math.Min(math.Max(pos/float64(len(targets)), probEpsilon), 1-probEpsilon)
	return math.Log(rate / (1 - rate))
}

func (o *BinaryLogLossObjective) Transform(raw float64) float64 {
	return sigmoid(raw)
}

func (o *BinaryLogLossObjective) Name() string {
	return "binary"
}

// CreateObjectiveFunction creates an objective function based on the objective name.
// XGBoost spellings are accepted for the objectives both libraries share.
func CreateObjectiveFunction(objective string) (ObjectiveFunction, error) {
	switch objective {
	case "regression", "regression_l2", "l2", "mse", "reg:squarederror":
		return NewL2Objective(), nil
	case "binary", "binary_logloss", "logistic", "binary:logistic":
		return NewBinaryLogLossObjective(), nil
	default:
		return nil, errors.NewValidationError("objective", "unknown objective", objective)
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

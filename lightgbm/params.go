package lightgbm

import "github.com/YuminosukeSato/loanboost/pkg/errors"

// TrainingParams contains the training hyperparameters
type TrainingParams struct {
	// Basic parameters
	NumIterations int     `json:"num_iterations"`
	LearningRate  float64 `json:"learning_rate"`
	NumLeaves     int     `json:"num_leaves"` // 0 means no limit
	MaxDepth      int     `json:"max_depth"`  // 0 means no limit
	MinDataInLeaf int     `json:"min_data_in_leaf"`

	// Regularization
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Histogram parameters
	MaxBin int `json:"max_bin"`

	// Objective
	Objective string `json:"objective"`

	// Other
	EarlyStopping int    `json:"early_stopping_rounds"`
	Metric        string `json:"metric"`
	Verbosity     int    `json:"verbosity"`
}

// DefaultParams mirrors the XGBoost defaults the SageMaker container uses
// (eta 0.3, max_depth 6, lambda 1) with the binary logistic objective.
func DefaultParams() TrainingParams {
	return TrainingParams{
		NumIterations: 100,
		LearningRate:  0.3,
		MaxDepth:      6,
		MinDataInLeaf: 1,
		Lambda:        1.0,
		MaxBin:        255,
		Objective:     "binary",
		Metric:        "binary_logloss",
	}
}

func (p *TrainingParams) setDefaults() {
	d := DefaultParams()
	if p.NumIterations == 0 {
		p.NumIterations = d.NumIterations
	}
	if p.LearningRate == 0 {
		p.LearningRate = d.LearningRate
	}
	if p.MinDataInLeaf == 0 {
		p.MinDataInLeaf = d.MinDataInLeaf
	}
	if p.MaxBin == 0 {
		p.MaxBin = d.MaxBin
	}
	if p.Objective == "" {
		p.Objective = d.Objective
	}
}

// Validate checks the parameter ranges.
func (p TrainingParams) Validate() error {
	switch {
	case p.NumIterations < 1:
		return errors.NewValidationError("num_iterations", "must be at least 1", p.NumIterations)
	case p.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", p.LearningRate)
	case p.MaxBin < 2:
		return errors.NewValidationError("max_bin", "must be at least 2", p.MaxBin)
	case p.Lambda < 0:
		return errors.NewValidationError("lambda_l2", "must not be negative", p.Lambda)
	case p.EarlyStopping < 0:
		return errors.NewValidationError("early_stopping_rounds", "must not be negative", p.EarlyStopping)
	}
	return nil
}

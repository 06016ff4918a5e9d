package training

import (
	"context"
	"strconv"
)

// Params are the hyperparameters sent with every training job.
type Params struct {
	Objective           string
	EvalMetric          string
	NumRound            int
	EarlyStoppingRounds int
}

// DefaultParams returns binary:logistic with logloss, 100 rounds and a
// patience of 10 rounds on the validation channel.
func DefaultParams() Params {
	return Params{
		Objective:           "binary:logistic",
		EvalMetric:          "logloss",
		NumRound:            100,
		EarlyStoppingRounds: 10,
	}
}

// HyperParameters renders p in the string form SageMaker expects.
// Early stopping is omitted when EarlyStoppingRounds is zero.
func (p Params) HyperParameters() map[string]string {
	hp := map[string]string{
		"objective":   p.Objective,
		"eval_metric": p.EvalMetric,
		"num_round":   strconv.Itoa(p.NumRound),
	}
	if p.EarlyStoppingRounds > 0 {
		hp["early_stopping_rounds"] = strconv.Itoa(p.EarlyStoppingRounds)
	}
	return hp
}

// FitInput names the local channel files to train on.
type FitInput struct {
	TrainPath      string
	ValidationPath string
	FeatureNames   []string // column order of the channel features
	Params         Params
}

// FitOutput describes a finished fit.
type FitOutput struct {
	JobName  string
	ModelURI string
	// ModelFile is the booster's name inside the archive at ModelURI;
	// empty means platform.ModelFileName.
	ModelFile string
	Metrics   map[string]float64
}

// Fitter trains a model from channel files and reports where the model
// artifact was stored.
type Fitter interface {
	Fit(ctx context.Context, in FitInput) (*FitOutput, error)
}

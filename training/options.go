package training

import "github.com/YuminosukeSato/loanboost/pkg/log"

// Option is a function that configures a Trainer
type Option func(*Trainer)

// WithLabelColumn sets the target column
func WithLabelColumn(name string) Option {
	return func(t *Trainer) {
		t.label = name
	}
}

// WithValidationFraction sets the share of rows held out for validation
func WithValidationFraction(fraction float64) Option {
	return func(t *Trainer) {
		t.fraction = fraction
	}
}

// WithSeed sets the seed of the split permutation
func WithSeed(seed int64) Option {
	return func(t *Trainer) {
		t.seed = seed
	}
}

// WithParams sets the training hyperparameters
func WithParams(p Params) Option {
	return func(t *Trainer) {
		t.params = p
	}
}

// WithOutputPath sets where the model archive is downloaded
func WithOutputPath(path string) Option {
	return func(t *Trainer) {
		t.outputPath = path
	}
}

// WithExtractModel also extracts the booster file next to the archive
func WithExtractModel(extract bool) Option {
	return func(t *Trainer) {
		t.extract = extract
	}
}

// WithWorkDir keeps the channel files in dir instead of a temporary directory
func WithWorkDir(dir string) Option {
	return func(t *Trainer) {
		t.workDir = dir
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(t *Trainer) {
		t.logger = logger
	}
}

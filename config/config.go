// Package config holds the settings shared by every loanboost step.
//
// Defaults reproduce the values the workflow was first run with. A YAML
// (.yaml, .yml) or HCL (.hcl) file may override any subset of them; keys
// absent from the file keep their defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"gopkg.in/yaml.v3"
)

// Config is the flat set of pipeline settings.
type Config struct {
	Region   string `yaml:"region"`
	RoleARN  string `yaml:"role_arn"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	LogLevel string `yaml:"log_level"`

	// preprocessing
	RawDataPath       string `yaml:"raw_data"`
	ProcessedDataPath string `yaml:"processed_data"`
	CodePolicy        string `yaml:"code_policy"`

	// training
	LabelColumn         string  `yaml:"label_column"`
	ValidationFraction  float64 `yaml:"validation_fraction"`
	Seed                int64   `yaml:"seed"`
	NumRound            int     `yaml:"num_round"`
	EarlyStoppingRounds int     `yaml:"early_stopping_rounds"`
	ModelPath           string  `yaml:"model_output"`
	ExtractModel        bool    `yaml:"extract_model"`
	LocalTraining       bool    `yaml:"local_training"`

	// SageMaker resources shared by training, tuning and hosting
	FrameworkVersion string        `yaml:"framework_version"`
	InstanceType     string        `yaml:"instance_type"`
	InstanceCount    int           `yaml:"instance_count"`
	VolumeSizeGB     int           `yaml:"volume_size_gb"`
	MaxRuntime       time.Duration `yaml:"max_runtime"`
	PollInterval     time.Duration `yaml:"poll_interval"`

	// tuning
	MaxJobs         int    `yaml:"max_jobs"`
	MaxParallelJobs int    `yaml:"max_parallel_jobs"`
	EntryPoint      string `yaml:"entry_point"`
	SourceDir       string `yaml:"source_dir"`
	ReportPath      string `yaml:"report_path"`

	// deployment and inference
	ModelData    string `yaml:"model_data"`
	EndpointName string `yaml:"endpoint_name"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		RoleARN:  "your-role-arn",
		Bucket:   "your-s3-bucket",
		LogLevel: "info",

		RawDataPath:       "data/raw_data.csv",
		ProcessedDataPath: "data/processed_data.csv",
		CodePolicy:        "drop",

		LabelColumn:         "Default",
		ValidationFraction:  0.2,
		Seed:                42,
		NumRound:            100,
		EarlyStoppingRounds: 10,
		ModelPath:           "xgb_model.tar.gz",

		FrameworkVersion: "1.3-1",
		InstanceType:     "ml.m5.xlarge",
		InstanceCount:    1,
		VolumeSizeGB:     30,
		MaxRuntime:       24 * time.Hour,
		PollInterval:     30 * time.Second,

		MaxJobs:         10,
		MaxParallelJobs: 2,
		SourceDir:       ".",

		EndpointName: "your-endpoint-name",
	}
}

// Load returns the defaults overlaid with the file at path. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case ".hcl":
		var file hclFile
		if err := hclsimple.DecodeFile(path, nil, &file); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
		if err := file.apply(cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	default:
		return nil, errors.NewValidationError("config", "unsupported file extension, use .yaml, .yml or .hcl", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. It does not require remote settings; see
// RequireRemote.
func (c *Config) Validate() error {
	switch {
	case c.ValidationFraction <= 0 || c.ValidationFraction >= 1:
		return errors.NewValidationError("validation_fraction", "must be in (0, 1)", c.ValidationFraction)
	case c.NumRound < 1:
		return errors.NewValidationError("num_round", "must be at least 1", c.NumRound)
	case c.EarlyStoppingRounds < 0:
		return errors.NewValidationError("early_stopping_rounds", "must not be negative", c.EarlyStoppingRounds)
	case c.InstanceCount < 1:
		return errors.NewValidationError("instance_count", "must be at least 1", c.InstanceCount)
	case c.VolumeSizeGB < 1:
		return errors.NewValidationError("volume_size_gb", "must be at least 1", c.VolumeSizeGB)
	case c.MaxRuntime <= 0:
		return errors.NewValidationError("max_runtime", "must be positive", c.MaxRuntime)
	case c.PollInterval <= 0:
		return errors.NewValidationError("poll_interval", "must be positive", c.PollInterval)
	case c.MaxJobs < 1:
		return errors.NewValidationError("max_jobs", "must be at least 1", c.MaxJobs)
	case c.MaxParallelJobs < 1 || c.MaxParallelJobs > c.MaxJobs:
		return errors.NewValidationError("max_parallel_jobs", "must be between 1 and max_jobs", c.MaxParallelJobs)
	case c.LabelColumn == "":
		return errors.NewValidationError("label_column", "must not be empty", c.LabelColumn)
	}
	switch strings.ToLower(c.CodePolicy) {
	case "", "drop", "strict":
	default:
		return errors.NewValidationError("code_policy", "must be drop or strict", c.CodePolicy)
	}
	return nil
}

// Remote names a setting a remote command depends on.
type Remote int

const (
	// NeedRole requires the SageMaker execution role.
	NeedRole Remote = iota
	// NeedBucket requires the S3 bucket for channels and artifacts.
	NeedBucket
)

// RequireRemote checks that the settings named by needs are set.
func (c *Config) RequireRemote(needs ...Remote) error {
	for _, n := range needs {
		switch n {
		case NeedRole:
			if c.RoleARN == "" {
				return errors.NewValidationError("role_arn", "must not be empty", c.RoleARN)
			}
		case NeedBucket:
			if c.Bucket == "" {
				return errors.NewValidationError("bucket", "must not be empty", c.Bucket)
			}
		}
	}
	return nil
}

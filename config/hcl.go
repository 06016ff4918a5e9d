package config

import (
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
)

// hclFile mirrors Config with optional attributes so that only the keys
// present in the file replace defaults. Durations are written as strings
// such as "30s".
type hclFile struct {
	Region   *string `hcl:"region,optional"`
	RoleARN  *string `hcl:"role_arn,optional"`
	Bucket   *string `hcl:"bucket,optional"`
	Prefix   *string `hcl:"prefix,optional"`
	LogLevel *string `hcl:"log_level,optional"`

	RawDataPath       *string `hcl:"raw_data,optional"`
	ProcessedDataPath *string `hcl:"processed_data,optional"`
	CodePolicy        *string `hcl:"code_policy,optional"`

	LabelColumn         *string  `hcl:"label_column,optional"`
	ValidationFraction  *float64 `hcl:"validation_fraction,optional"`
	Seed                *int64   `hcl:"seed,optional"`
	NumRound            *int     `hcl:"num_round,optional"`
	EarlyStoppingRounds *int     `hcl:"early_stopping_rounds,optional"`
	ModelPath           *string  `hcl:"model_output,optional"`
	ExtractModel        *bool    `hcl:"extract_model,optional"`
	LocalTraining       *bool    `hcl:"local_training,optional"`

	FrameworkVersion *string `hcl:"framework_version,optional"`
	InstanceType     *string `hcl:"instance_type,optional"`
	InstanceCount    *int    `hcl:"instance_count,optional"`
	VolumeSizeGB     *int    `hcl:"volume_size_gb,optional"`
	MaxRuntime       *string `hcl:"max_runtime,optional"`
	PollInterval     *string `hcl:"poll_interval,optional"`

	MaxJobs         *int    `hcl:"max_jobs,optional"`
	MaxParallelJobs *int    `hcl:"max_parallel_jobs,optional"`
	EntryPoint      *string `hcl:"entry_point,optional"`
	SourceDir       *string `hcl:"source_dir,optional"`
	ReportPath      *string `hcl:"report_path,optional"`

	ModelData    *string `hcl:"model_data,optional"`
	EndpointName *string `hcl:"endpoint_name,optional"`
}

func (f *hclFile) apply(c *Config) error {
	setString(&c.Region, f.Region)
	setString(&c.RoleARN, f.RoleARN)
	setString(&c.Bucket, f.Bucket)
	setString(&c.Prefix, f.Prefix)
	setString(&c.LogLevel, f.LogLevel)

	setString(&c.RawDataPath, f.RawDataPath)
	setString(&c.ProcessedDataPath, f.ProcessedDataPath)
	setString(&c.CodePolicy, f.CodePolicy)

	setString(&c.LabelColumn, f.LabelColumn)
	if f.ValidationFraction != nil {
		c.ValidationFraction = *f.ValidationFraction
	}
	if f.Seed != nil {
		c.Seed = *f.Seed
	}
	setInt(&c.NumRound, f.NumRound)
	setInt(&c.EarlyStoppingRounds, f.EarlyStoppingRounds)
	setString(&c.ModelPath, f.ModelPath)
	if f.ExtractModel != nil {
		c.ExtractModel = *f.ExtractModel
	}
	if f.LocalTraining != nil {
		c.LocalTraining = *f.LocalTraining
	}

	setString(&c.FrameworkVersion, f.FrameworkVersion)
	setString(&c.InstanceType, f.InstanceType)
	setInt(&c.InstanceCount, f.InstanceCount)
	setInt(&c.VolumeSizeGB, f.VolumeSizeGB)
	if err := setDuration(&c.MaxRuntime, f.MaxRuntime, "max_runtime"); err != nil {
		return err
	}
	if err := setDuration(&c.PollInterval, f.PollInterval, "poll_interval"); err != nil {
		return err
	}

	setInt(&c.MaxJobs, f.MaxJobs)
	setInt(&c.MaxParallelJobs, f.MaxParallelJobs)
	setString(&c.EntryPoint, f.EntryPoint)
	setString(&c.SourceDir, f.SourceDir)
	setString(&c.ReportPath, f.ReportPath)

	setString(&c.ModelData, f.ModelData)
	setString(&c.EndpointName, f.EndpointName)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return errors.NewValidationError(name, "must be a duration such as 30s", *v)
	}
	*dst = d
	return nil
}

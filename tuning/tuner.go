// Package tuning submits and follows SageMaker hyperparameter tuning jobs
// for the XGBoost classifier.
//
// The search itself runs inside SageMaker: a Bayesian strategy minimizing
// validation:logloss over the configured ranges, with a bounded number of
// training jobs. This package only builds the request, waits for the job
// and reads back its trials.
package tuning

import (
	"bytes"
	"context"
	"encoding/json"
	"maps"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

const (
	// DefaultObjectiveMetric is minimized by every sweep.
	DefaultObjectiveMetric = "validation:logloss"
	// DefaultJobBaseName prefixes generated tuning job names.
	DefaultJobBaseName = "loanboost-tune"

	// SourceArchiveName is the packed entry point directory on S3.
	SourceArchiveName = "sourcedir.tar.gz"
)

// objectiveRegex extracts validation-logloss from XGBoost container logs,
// where tabs are logged as #011.
const objectiveRegex = `.*\[[0-9]+\].*#011validation-logloss:([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?).*`

// Request describes one tuning job.
type Request struct {
	RoleARN          string
	Bucket           string
	Prefix           string
	Ranges           Ranges
	MaxJobs          int
	MaxParallelJobs  int
	ObjectiveMetric  string
	FrameworkVersion string
	InstanceType     string
	InstanceCount    int
	VolumeSizeGB     int
	MaxRuntime       time.Duration

	// StaticHyperParameters are passed unchanged to every trial.
	StaticHyperParameters map[string]string

	// EntryPoint switches to script mode: SourceDir is packed and the
	// container runs EntryPoint from it.
	EntryPoint string
	SourceDir  string

	JobBaseName string
}

// DefaultRequest returns the sweep the workflow was first run with.
func DefaultRequest(roleARN, bucket string) Request {
	return Request{
		RoleARN:          roleARN,
		Bucket:           bucket,
		Ranges:           DefaultRanges(),
		MaxJobs:          10,
		MaxParallelJobs:  2,
		ObjectiveMetric:  DefaultObjectiveMetric,
		FrameworkVersion: "1.3-1",
		InstanceType:     "ml.m5.xlarge",
		InstanceCount:    1,
		VolumeSizeGB:     30,
		MaxRuntime:       24 * time.Hour,
		StaticHyperParameters: map[string]string{
			"objective":   "binary:logistic",
			"eval_metric": "logloss",
			"num_round":   "100",
		},
		SourceDir:   ".",
		JobBaseName: DefaultJobBaseName,
	}
}

// Validate checks the request before anything is uploaded or submitted.
func (r *Request) Validate() error {
	switch {
	case r.RoleARN == "":
		return errors.NewValidationError("role_arn", "must not be empty", r.RoleARN)
	case r.Bucket == "":
		return errors.NewValidationError("bucket", "must not be empty", r.Bucket)
	case r.MaxJobs < 1:
		return errors.NewValidationError("max_jobs", "must be at least 1", r.MaxJobs)
	case r.MaxParallelJobs < 1:
		return errors.NewValidationError("max_parallel_jobs", "must be at least 1", r.MaxParallelJobs)
	case r.MaxParallelJobs > r.MaxJobs:
		return errors.NewValidationError("max_parallel_jobs", "must not exceed max_jobs", r.MaxParallelJobs)
	case r.ObjectiveMetric == "":
		return errors.NewValidationError("objective_metric", "must not be empty", r.ObjectiveMetric)
	case r.InstanceCount < 1:
		return errors.NewValidationError("instance_count", "must be at least 1", r.InstanceCount)
	case r.VolumeSizeGB < 1:
		return errors.NewValidationError("volume_size_gb", "must be at least 1", r.VolumeSizeGB)
	case r.MaxRuntime <= 0:
		return errors.NewValidationError("max_runtime", "must be positive", r.MaxRuntime)
	}
	if err := r.Ranges.Validate(); err != nil {
		return err
	}
	for name := range r.Ranges {
		if _, ok := r.StaticHyperParameters[name]; ok {
			return errors.NewValidationError(name, "hyperparameter is both static and tuned", name)
		}
	}
	return nil
}

// Result is the outcome of a completed tuning job.
type Result struct {
	JobName         string
	Status          string
	BestTrainingJob string
	ObjectiveMetric string
	ObjectiveValue  float64
	HyperParameters map[string]string
}

// Tuner talks to SageMaker on behalf of one region.
type Tuner struct {
	client       platform.SageMakerAPI
	store        platform.ObjectStore
	region       string
	pollInterval time.Duration
	logger       log.Logger
}

// NewTuner creates a Tuner that polls job status every pollInterval.
func NewTuner(client platform.SageMakerAPI, store platform.ObjectStore, region string, pollInterval time.Duration) *Tuner {
	return &Tuner{
		client:       client,
		store:        store,
		region:       region,
		pollInterval: pollInterval,
		logger:       log.GetLoggerWithName("tuning"),
	}
}

// Tune submits req and waits for the job to finish.
func (t *Tuner) Tune(ctx context.Context, req Request) (*Result, error) {
	name, err := t.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return t.Wait(ctx, name)
}

// Submit validates req, uploads the source archive in script mode, and
// creates the tuning job. It returns the job name.
func (t *Tuner) Submit(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	image, err := platform.ImageURI(platform.FrameworkXGBoost, t.region, req.FrameworkVersion)
	if err != nil {
		return "", err
	}

	base := req.JobBaseName
	if base == "" {
		base = DefaultJobBaseName
	}
	name := platform.UniqueName(base, platform.MaxTuningJobNameLen)

	static := maps.Clone(req.StaticHyperParameters)
	if static == nil {
		static = map[string]string{}
	}
	algorithm := &types.HyperParameterAlgorithmSpecification{
		TrainingImage:     aws.String(image),
		TrainingInputMode: types.TrainingInputModeFile,
	}
	if req.EntryPoint != "" {
		uri, err := t.uploadSource(ctx, req, name)
		if err != nil {
			return "", err
		}
		static["sagemaker_program"] = quote(req.EntryPoint)
		static["sagemaker_submit_directory"] = quote(uri)
		static["sagemaker_region"] = quote(t.region)
		algorithm.MetricDefinitions = []types.MetricDefinition{{
			Name:  aws.String(req.ObjectiveMetric),
			Regex: aws.String(objectiveRegex),
		}}
	}

	input := &sagemaker.CreateHyperParameterTuningJobInput{
		HyperParameterTuningJobName: aws.String(name),
		HyperParameterTuningJobConfig: &types.HyperParameterTuningJobConfig{
			Strategy: types.HyperParameterTuningJobStrategyTypeBayesian,
			HyperParameterTuningJobObjective: &types.HyperParameterTuningJobObjective{
				Type:       types.HyperParameterTuningJobObjectiveTypeMinimize,
				MetricName: aws.String(req.ObjectiveMetric),
			},
			ResourceLimits: &types.ResourceLimits{
				MaxNumberOfTrainingJobs: aws.Int32(int32(req.MaxJobs)),
				MaxParallelTrainingJobs: aws.Int32(int32(req.MaxParallelJobs)),
			},
			ParameterRanges: req.Ranges.parameterRanges(),
		},
		TrainingJobDefinition: &types.HyperParameterTrainingJobDefinition{
			AlgorithmSpecification: algorithm,
			RoleArn:                aws.String(req.RoleARN),
			StaticHyperParameters:  static,
			InputDataConfig: []types.Channel{
				platform.CSVChannel("train", platform.S3URI(req.Bucket, req.Prefix, "train")),
				platform.CSVChannel("validation", platform.S3URI(req.Bucket, req.Prefix, "validation")),
			},
			OutputDataConfig: &types.OutputDataConfig{
				S3OutputPath: aws.String(platform.S3URI(req.Bucket, req.Prefix, "tuning")),
			},
			ResourceConfig: &types.ResourceConfig{
				InstanceType:   types.TrainingInstanceType(req.InstanceType),
				InstanceCount:  aws.Int32(int32(req.InstanceCount)),
				VolumeSizeInGB: aws.Int32(int32(req.VolumeSizeGB)),
			},
			StoppingCondition: &types.StoppingCondition{
				MaxRuntimeInSeconds: aws.Int32(int32(req.MaxRuntime / time.Second)),
			},
		},
	}
	if _, err := t.client.CreateHyperParameterTuningJob(ctx, input); err != nil {
		return "", errors.NewRemoteError("CreateHyperParameterTuningJob", name, err)
	}

	t.logger.Info("Tuning job submitted",
		log.OperationKey, log.OperationTune,
		log.JobNameKey, name,
		log.RegionKey, t.region,
		log.ImageKey, image,
		log.MetricNameKey, req.ObjectiveMetric,
		"tuning.max_jobs", req.MaxJobs,
		"tuning.max_parallel_jobs", req.MaxParallelJobs,
	)
	return name, nil
}

// Wait polls the tuning job until it completes, fails or is stopped.
func (t *Tuner) Wait(ctx context.Context, name string) (*Result, error) {
	if t.pollInterval <= 0 {
		return nil, errors.NewValidationError("poll_interval", "must be positive", t.pollInterval)
	}
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	input := &sagemaker.DescribeHyperParameterTuningJobInput{HyperParameterTuningJobName: aws.String(name)}
	for {
		out, err := t.client.DescribeHyperParameterTuningJob(ctx, input)
		if err != nil {
			return nil, errors.NewRemoteError("DescribeHyperParameterTuningJob", name, err)
		}

		switch status := out.HyperParameterTuningJobStatus; status {
		case types.HyperParameterTuningJobStatusCompleted:
			return t.result(name, out)
		case types.HyperParameterTuningJobStatusFailed, types.HyperParameterTuningJobStatusStopped:
			err := errors.NewRemoteStatusError("tuning job", name, string(status), aws.ToString(out.FailureReason))
			t.logger.Error("Tuning job did not complete", err, log.JobNameKey, name)
			return nil, err
		default:
			t.logger.Debug("Tuning job running", log.JobNameKey, name, log.JobStatusKey, string(status))
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "wait for tuning job %s", name)
		case <-ticker.C:
		}
	}
}

func (t *Tuner) result(name string, out *sagemaker.DescribeHyperParameterTuningJobOutput) (*Result, error) {
	best := out.BestTrainingJob
	if best == nil || best.FinalHyperParameterTuningJobObjectiveMetric == nil {
		return nil, errors.NewRemoteStatusError("tuning job", name,
			string(out.HyperParameterTuningJobStatus), "no best training job reported")
	}
	metric := best.FinalHyperParameterTuningJobObjectiveMetric
	res := &Result{
		JobName:         name,
		Status:          string(out.HyperParameterTuningJobStatus),
		BestTrainingJob: aws.ToString(best.TrainingJobName),
		ObjectiveMetric: aws.ToString(metric.MetricName),
		ObjectiveValue:  float64(aws.ToFloat32(metric.Value)),
		HyperParameters: best.TunedHyperParameters,
	}
	t.logger.Info("Tuning job completed",
		log.JobNameKey, name,
		"tuning.best_training_job", res.BestTrainingJob,
		log.MetricNameKey, res.ObjectiveMetric,
		log.MetricValueKey, res.ObjectiveValue,
		log.HyperParamsKey, res.HyperParameters,
	)
	return res, nil
}

func (t *Tuner) uploadSource(ctx context.Context, req Request, jobName string) (string, error) {
	var buf bytes.Buffer
	if err := platform.PackDir(req.SourceDir, &buf); err != nil {
		return "", err
	}
	uri := platform.S3URI(req.Bucket, req.Prefix, "source", jobName, SourceArchiveName)
	if err := t.store.Upload(ctx, uri, &buf); err != nil {
		return "", err
	}
	t.logger.Debug("Source directory uploaded", log.PathKey, req.SourceDir, log.URIKey, uri)
	return uri, nil
}

// quote renders a value the way framework containers decode their
// sagemaker_* hyperparameters: as a JSON string.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

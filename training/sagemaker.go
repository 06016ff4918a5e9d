package training

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"golang.org/x/sync/errgroup"
)

// DefaultJobBaseName prefixes generated training job names.
const DefaultJobBaseName = "loanboost-xgb"

// provisionAllowance is added to the job's own runtime limit when waiting,
// to cover instance startup and artifact upload.
const provisionAllowance = time.Hour

// SageMakerConfig describes where and how training jobs run.
type SageMakerConfig struct {
	Region           string
	RoleARN          string
	Bucket           string
	Prefix           string
	FrameworkVersion string
	InstanceType     string
	InstanceCount    int
	VolumeSizeGB     int
	MaxRuntime       time.Duration
	PollInterval     time.Duration
	JobBaseName      string
}

// SageMakerFitter runs a training job with the built-in XGBoost image.
type SageMakerFitter struct {
	client platform.SageMakerAPI
	store  platform.ObjectStore
	cfg    SageMakerConfig
	image  string
	logger log.Logger
}

// NewSageMakerFitter resolves the training image and checks cfg.
func NewSageMakerFitter(client platform.SageMakerAPI, store platform.ObjectStore, cfg SageMakerConfig) (*SageMakerFitter, error) {
	switch {
	case cfg.RoleARN == "":
		return nil, errors.NewValidationError("role_arn", "must not be empty", cfg.RoleARN)
	case cfg.Bucket == "":
		return nil, errors.NewValidationError("bucket", "must not be empty", cfg.Bucket)
	case cfg.InstanceCount < 1:
		return nil, errors.NewValidationError("instance_count", "must be at least 1", cfg.InstanceCount)
	case cfg.VolumeSizeGB < 1:
		return nil, errors.NewValidationError("volume_size_gb", "must be at least 1", cfg.VolumeSizeGB)
	case cfg.MaxRuntime <= 0:
		return nil, errors.NewValidationError("max_runtime", "must be positive", cfg.MaxRuntime)
	case cfg.PollInterval <= 0:
		return nil, errors.NewValidationError("poll_interval", "must be positive", cfg.PollInterval)
	}
	image, err := platform.ImageURI(platform.FrameworkXGBoost, cfg.Region, cfg.FrameworkVersion)
	if err != nil {
		return nil, err
	}
	if cfg.JobBaseName == "" {
		cfg.JobBaseName = DefaultJobBaseName
	}
	return &SageMakerFitter{
		client: client,
		store:  store,
		cfg:    cfg,
		image:  image,
		logger: log.GetLoggerWithName("training.sagemaker"),
	}, nil
}

// Fit uploads both channels, submits a training job and blocks until it
// reaches a terminal state.
func (f *SageMakerFitter) Fit(ctx context.Context, in FitInput) (*FitOutput, error) {
	trainURI := platform.S3URI(f.cfg.Bucket, f.cfg.Prefix, "train")
	validURI := platform.S3URI(f.cfg.Bucket, f.cfg.Prefix, "validation")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.upload(gctx, in.TrainPath, trainURI)
	})
	g.Go(func() error {
		return f.upload(gctx, in.ValidationPath, validURI)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	name := platform.UniqueName(f.cfg.JobBaseName, platform.MaxJobNameLen)
	logger := f.logger.With(log.JobNameKey, name)

	_, err := f.client.CreateTrainingJob(ctx, &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(name),
		RoleArn:         aws.String(f.cfg.RoleARN),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(f.image),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: in.Params.HyperParameters(),
		InputDataConfig: []types.Channel{
			platform.CSVChannel("train", trainURI),
			platform.CSVChannel("validation", validURI),
		},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(platform.S3URI(f.cfg.Bucket, f.cfg.Prefix, "output")),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(f.cfg.InstanceType),
			InstanceCount:  aws.Int32(int32(f.cfg.InstanceCount)),
			VolumeSizeInGB: aws.Int32(int32(f.cfg.VolumeSizeGB)),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(f.cfg.MaxRuntime / time.Second)),
		},
	})
	if err != nil {
		return nil, errors.NewRemoteError("CreateTrainingJob", name, err)
	}
	logger.Info("Training job submitted",
		log.OperationKey, log.OperationFit,
		log.ImageKey, f.image,
		log.InstanceTypeKey, f.cfg.InstanceType,
		log.HyperParamsKey, in.Params.HyperParameters(),
	)

	job, err := f.wait(ctx, name)
	if err != nil {
		logger.Error("Training job failed", err)
		return nil, err
	}

	out := &FitOutput{
		JobName:  name,
		ModelURI: aws.ToString(job.ModelArtifacts.S3ModelArtifacts),
		Metrics:  make(map[string]float64, len(job.FinalMetricDataList)),
	}
	for _, m := range job.FinalMetricDataList {
		out.Metrics[aws.ToString(m.MetricName)] = float64(aws.ToFloat32(m.Value))
	}
	logger.Info("Training job completed",
		log.JobStatusKey, string(job.TrainingJobStatus),
		log.URIKey, out.ModelURI,
	)
	return out, nil
}

func (f *SageMakerFitter) upload(ctx context.Context, path, prefixURI string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	uri := prefixURI + "/" + filepath.Base(path)
	if err := f.store.Upload(ctx, uri, file); err != nil {
		return err
	}
	f.logger.Debug("Channel uploaded", log.PathKey, path, log.URIKey, uri)
	return nil
}

// wait polls the job with the SDK waiter. The waiter treats Failed as an
// error, so the job is described once more to report its failure reason.
func (f *SageMakerFitter) wait(ctx context.Context, name string) (*sagemaker.DescribeTrainingJobOutput, error) {
	waiter := sagemaker.NewTrainingJobCompletedOrStoppedWaiter(f.client, func(o *sagemaker.TrainingJobCompletedOrStoppedWaiterOptions) {
		o.MinDelay = f.cfg.PollInterval
		o.MaxDelay = f.cfg.PollInterval
	})
	input := &sagemaker.DescribeTrainingJobInput{TrainingJobName: aws.String(name)}

	job, err := waiter.WaitForOutput(ctx, input, f.cfg.MaxRuntime+provisionAllowance)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrapf(ctx.Err(), "wait for training job %s", name)
		}
		desc, derr := f.client.DescribeTrainingJob(ctx, input)
		if derr == nil && desc.TrainingJobStatus == types.TrainingJobStatusFailed {
			return nil, errors.NewRemoteStatusError("training job", name,
				string(desc.TrainingJobStatus), aws.ToString(desc.FailureReason))
		}
		return nil, errors.NewRemoteError("DescribeTrainingJob", name, err)
	}
	if job.TrainingJobStatus != types.TrainingJobStatusCompleted {
		return nil, errors.NewRemoteStatusError("training job", name,
			string(job.TrainingJobStatus), aws.ToString(job.FailureReason))
	}
	if job.ModelArtifacts == nil || aws.ToString(job.ModelArtifacts.S3ModelArtifacts) == "" {
		return nil, errors.NewRemoteStatusError("training job", name,
			string(job.TrainingJobStatus), "no model artifact reported")
	}
	return job, nil
}

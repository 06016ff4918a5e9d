package training

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/platform/platformtest"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSageMakerConfig() SageMakerConfig {
	return SageMakerConfig{
		Region:           "us-east-1",
		RoleARN:          "arn:aws:iam::123456789012:role/SageMakerRole",
		Bucket:           "loans",
		Prefix:           "sba",
		FrameworkVersion: "1.3-1",
		InstanceType:     "ml.m5.xlarge",
		InstanceCount:    1,
		VolumeSizeGB:     30,
		MaxRuntime:       time.Hour,
		PollInterval:     time.Millisecond,
	}
}

func channelFiles(t *testing.T) FitInput {
	t.Helper()
	dir := t.TempDir()
	in := FitInput{
		TrainPath:      filepath.Join(dir, TrainFile),
		ValidationPath: filepath.Join(dir, ValidationFile),
		Params:         DefaultParams(),
	}
	require.NoError(t, os.WriteFile(in.TrainPath, []byte("0,45,84\n1,54,60\n"), 0o644))
	require.NoError(t, os.WriteFile(in.ValidationPath, []byte("1,23,36\n"), 0o644))
	return in
}

func TestNewSageMakerFitterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SageMakerConfig)
	}{
		{"no role", func(c *SageMakerConfig) { c.RoleARN = "" }},
		{"no bucket", func(c *SageMakerConfig) { c.Bucket = "" }},
		{"zero instances", func(c *SageMakerConfig) { c.InstanceCount = 0 }},
		{"zero volume", func(c *SageMakerConfig) { c.VolumeSizeGB = 0 }},
		{"zero runtime", func(c *SageMakerConfig) { c.MaxRuntime = 0 }},
		{"zero poll interval", func(c *SageMakerConfig) { c.PollInterval = 0 }},
		{"unknown region", func(c *SageMakerConfig) { c.Region = "nowhere-1" }},
		{"unknown version", func(c *SageMakerConfig) { c.FrameworkVersion = "0.72" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSageMakerConfig()
			tt.mutate(&cfg)
			_, err := NewSageMakerFitter(&platformtest.StubSageMaker{}, platformtest.NewMemoryStore(), cfg)
			var vErr *errors.ValidationError
			assert.True(t, errors.As(err, &vErr), "got %v", err)
		})
	}
}

func TestSageMakerFitterFit(t *testing.T) {
	sm := &platformtest.StubSageMaker{
		FinalMetrics: map[string]float32{"validation:logloss": 0.25},
	}
	store := platformtest.NewMemoryStore()
	fitter, err := NewSageMakerFitter(sm, store, testSageMakerConfig())
	require.NoError(t, err)

	out, err := fitter.Fit(context.Background(), channelFiles(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"s3://loans/sba/train/train.csv",
		"s3://loans/sba/validation/validation.csv",
	}, store.Keys())
	train, _ := store.Get("s3://loans/sba/train/train.csv")
	assert.Equal(t, "0,45,84\n1,54,60\n", string(train))

	require.Len(t, sm.TrainingJobs, 1)
	job := sm.TrainingJobs[0]
	assert.Equal(t, out.JobName, aws.ToString(job.TrainingJobName))
	assert.Equal(t, "683313688378.dkr.ecr.us-east-1.amazonaws.com/sagemaker-xgboost:1.3-1",
		aws.ToString(job.AlgorithmSpecification.TrainingImage))
	if diff := cmp.Diff(map[string]string{
		"objective":             "binary:logistic",
		"eval_metric":           "logloss",
		"num_round":             "100",
		"early_stopping_rounds": "10",
	}, job.HyperParameters); diff != "" {
		t.Errorf("hyperparameters mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, job.InputDataConfig, 2)
	assert.Equal(t, "train", aws.ToString(job.InputDataConfig[0].ChannelName))
	assert.Equal(t, "s3://loans/sba/train", aws.ToString(job.InputDataConfig[0].DataSource.S3DataSource.S3Uri))
	assert.Equal(t, "validation", aws.ToString(job.InputDataConfig[1].ChannelName))
	assert.Equal(t, "text/csv", aws.ToString(job.InputDataConfig[1].ContentType))
	assert.Equal(t, types.TrainingInstanceType("ml.m5.xlarge"), job.ResourceConfig.InstanceType)
	assert.Equal(t, int32(1), aws.ToInt32(job.ResourceConfig.InstanceCount))
	assert.Equal(t, int32(30), aws.ToInt32(job.ResourceConfig.VolumeSizeInGB))
	assert.Equal(t, int32(3600), aws.ToInt32(job.StoppingCondition.MaxRuntimeInSeconds))

	assert.Equal(t, "s3://loans/sba/output/"+out.JobName+"/output/model.tar.gz", out.ModelURI)
	assert.InDelta(t, 0.25, out.Metrics["validation:logloss"], 1e-6)
	assert.Equal(t, []string{"CreateTrainingJob", "DescribeTrainingJob"}, sm.Ops)
}

func TestSageMakerFitterJobFailed(t *testing.T) {
	sm := &platformtest.StubSageMaker{
		TrainingStatus: types.TrainingJobStatusFailed,
		FailureReason:  "AlgorithmError: label must be in [0,1]",
	}
	fitter, err := NewSageMakerFitter(sm, platformtest.NewMemoryStore(), testSageMakerConfig())
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), channelFiles(t))

	var rErr *errors.RemoteError
	require.True(t, errors.As(err, &rErr), "got %v", err)
	assert.Equal(t, "Failed", rErr.Status)
	assert.Equal(t, "AlgorithmError: label must be in [0,1]", rErr.Reason)
}

func TestSageMakerFitterJobStopped(t *testing.T) {
	sm := &platformtest.StubSageMaker{TrainingStatus: types.TrainingJobStatusStopped}
	fitter, err := NewSageMakerFitter(sm, platformtest.NewMemoryStore(), testSageMakerConfig())
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), channelFiles(t))

	var rErr *errors.RemoteError
	require.True(t, errors.As(err, &rErr), "got %v", err)
	assert.Equal(t, "Stopped", rErr.Status)
}

func TestSageMakerFitterUploadError(t *testing.T) {
	sm := &platformtest.StubSageMaker{}
	store := platformtest.NewMemoryStore()
	store.UploadErr = errors.New("AccessDenied")
	fitter, err := NewSageMakerFitter(sm, store, testSageMakerConfig())
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), channelFiles(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
	assert.Empty(t, sm.TrainingJobs)
}

func TestSageMakerFitterCreateError(t *testing.T) {
	apiErr := errors.New("ResourceLimitExceeded")
	sm := &platformtest.StubSageMaker{CreateErr: apiErr}
	fitter, err := NewSageMakerFitter(sm, platformtest.NewMemoryStore(), testSageMakerConfig())
	require.NoError(t, err)

	_, err = fitter.Fit(context.Background(), channelFiles(t))

	var rErr *errors.RemoteError
	require.True(t, errors.As(err, &rErr), "got %v", err)
	assert.Equal(t, "CreateTrainingJob", rErr.Op)
	assert.ErrorIs(t, err, apiErr)
}

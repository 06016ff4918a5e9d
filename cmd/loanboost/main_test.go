package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/YuminosukeSato/loanboost/platform/platformtest"
	"github.com/YuminosukeSato/loanboost/training"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAWS struct {
	sm      *platformtest.StubSageMaker
	runtime *platformtest.StubRuntime
	store   *platformtest.MemoryStore
	regions []string
}

func newFakeAWS() *fakeAWS {
	return &fakeAWS{
		sm:      &platformtest.StubSageMaker{},
		runtime: &platformtest.StubRuntime{},
		store:   platformtest.NewMemoryStore(),
	}
}

func (f *fakeAWS) factory(_ context.Context, region string) (*remote, error) {
	f.regions = append(f.regions, region)
	if region == "" {
		region = "us-east-1"
	}
	return &remote{Region: region, SageMaker: f.sm, Runtime: f.runtime, Store: f.store}, nil
}

func run(t *testing.T, f *fakeAWS, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(f.factory)
	var out, logs bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPreprocessCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	out := filepath.Join(dir, "processed.csv")
	raw := "LoanNr_ChkDgt,Name,NAICS,Term,Selected,ChgOffDate,Default\n" +
		"123,Acme,453210,84,1,,0\n" +
		"124,Bolt,,60,0,,1\n"
	require.NoError(t, os.WriteFile(in, []byte(raw), 0o644))

	stdout, err := run(t, newFakeAWS(), "", "preprocess", "--input", in, "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 1 of 2 rows")

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "NAICS,Term,Default\n45,84,0\n", string(got))
}

func TestPreprocessCommandStrictPolicy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "raw.csv")
	raw := "LoanNr_ChkDgt,Name,NAICS,Term,Selected,ChgOffDate,Default\n1,A,X9,84,1,,0\n"
	require.NoError(t, os.WriteFile(in, []byte(raw), 0o644))

	_, err := run(t, newFakeAWS(), "", "preprocess", "--input", in,
		"--output", filepath.Join(dir, "out.csv"), "--code-policy", "strict")

	var pErr *errors.ParseError
	assert.True(t, errors.As(err, &pErr), "got %v", err)
}

func TestInvokeCommand(t *testing.T) {
	f := newFakeAWS()
	f.runtime.Response = []byte("0.8734\n")

	stdout, err := run(t, f, "", "invoke", "--endpoint-name", "loan-ep", "--payload", "45,84,60000")
	require.NoError(t, err)

	assert.Equal(t, "0.8734\n", stdout)
	require.Len(t, f.runtime.Calls, 1)
	assert.Equal(t, "loan-ep", aws.ToString(f.runtime.Calls[0].EndpointName))
	assert.Equal(t, []byte("45,84,60000"), f.runtime.Calls[0].Body)
}

func TestInvokeCommandStdin(t *testing.T) {
	f := newFakeAWS()
	f.runtime.Response = []byte("0.1\n0.2\n")

	stdout, err := run(t, f, "1,2\n3,4\n", "invoke", "--payload-file", "-")
	require.NoError(t, err)

	assert.Equal(t, "0.1\n0.2\n", stdout)
	assert.Equal(t, "your-endpoint-name", aws.ToString(f.runtime.Calls[0].EndpointName))
	assert.Equal(t, []byte("1,2\n3,4\n"), f.runtime.Calls[0].Body)
}

func TestInvokeCommandNeedsPayload(t *testing.T) {
	f := newFakeAWS()
	_, err := run(t, f, "", "invoke")
	assert.Error(t, err)
	assert.Empty(t, f.runtime.Calls)
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "loanboost.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("region: eu-west-1\nendpoint_name: from-config\n"), 0o644))

	f := newFakeAWS()
	_, err := run(t, f, "", "--config", cfgPath, "invoke", "--payload", "1")
	require.NoError(t, err)
	_, err = run(t, f, "", "--config", cfgPath, "--region", "us-west-2", "invoke", "--endpoint-name", "from-flag", "--payload", "1")
	require.NoError(t, err)

	require.Len(t, f.runtime.Calls, 2)
	assert.Equal(t, "from-config", aws.ToString(f.runtime.Calls[0].EndpointName))
	assert.Equal(t, "from-flag", aws.ToString(f.runtime.Calls[1].EndpointName))
	assert.Equal(t, []string{"eu-west-1", "us-west-2"}, f.regions)
}

func TestBadConfigFile(t *testing.T) {
	_, err := run(t, newFakeAWS(), "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "invoke", "--payload", "1")
	assert.Error(t, err)

	_, err = run(t, newFakeAWS(), "", "--log-level", "loud", "invoke", "--payload", "1")
	var vErr *errors.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestTrainCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "processed.csv")
	var csv strings.Builder
	csv.WriteString("NAICS,Term,Default\n")
	for i := 0; i < 20; i++ {
		csv.WriteString("45,84," + []string{"0", "1"}[i%2] + "\n")
	}
	require.NoError(t, os.WriteFile(input, []byte(csv.String()), 0o644))

	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, platform.ModelFileName), []byte("booster"), 0o644))
	var archive bytes.Buffer
	require.NoError(t, platform.PackDir(src, &archive))

	f := newFakeAWS()
	f.sm.ModelArtifact = "s3://your-s3-bucket/output/model.tar.gz"
	f.store.Put(f.sm.ModelArtifact, archive.Bytes())
	model := filepath.Join(dir, "xgb_model.tar.gz")

	stdout, err := run(t, f, "", "train", "--input", input, "--output", model, "--extract")
	require.NoError(t, err)
	assert.Contains(t, stdout, "saved to "+model)

	assert.FileExists(t, model)
	assert.FileExists(t, filepath.Join(dir, platform.ModelFileName))
	m, err := training.ReadManifest(training.ManifestPath(model))
	require.NoError(t, err)
	assert.Equal(t, 16, m.TrainRows)
	assert.Equal(t, 4, m.ValidationRows)
	assert.Contains(t, f.store.Keys(), "s3://your-s3-bucket/train/train.csv")
}

func TestDeployCommandReadsManifest(t *testing.T) {
	model := filepath.Join(t.TempDir(), "xgb_model.tar.gz")
	require.NoError(t, training.WriteManifest(training.ManifestPath(model), &training.Manifest{
		JobName:  "loanboost-xgb-1",
		ModelURI: "s3://bucket/output/loanboost-xgb-1/output/model.tar.gz",
	}))

	f := newFakeAWS()
	stdout, err := run(t, f, "", "deploy", "--model", model, "--endpoint-name", "loan-ep", "--poll-interval", "1ms")
	require.NoError(t, err)

	assert.Contains(t, stdout, "endpoint loan-ep is InService")
	require.Len(t, f.sm.Models, 1)
	assert.Equal(t, "s3://bucket/output/loanboost-xgb-1/output/model.tar.gz",
		aws.ToString(f.sm.Models[0].PrimaryContainer.ModelDataUrl))
}

func TestDeployCommandWithoutModelData(t *testing.T) {
	f := newFakeAWS()
	_, err := run(t, f, "", "deploy", "--model", filepath.Join(t.TempDir(), "none.tar.gz"))

	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "model_data", vErr.ParamName)
	assert.Empty(t, f.sm.Ops)
}

func TestUndeployCommand(t *testing.T) {
	f := newFakeAWS()
	_, err := run(t, f, "", "deploy", "--model-data", "s3://b/model.tar.gz", "--endpoint-name", "ep", "--poll-interval", "1ms")
	require.NoError(t, err)

	stdout, err := run(t, f, "", "undeploy", "--endpoint-name", "ep", "--delete-model")
	require.NoError(t, err)
	assert.Contains(t, stdout, "endpoint ep deleted")
	assert.Equal(t, []string{"ep"}, f.sm.DeletedEndpoints)
	assert.Len(t, f.sm.DeletedModels, 1)
}

func TestTuneCommandNoWait(t *testing.T) {
	f := newFakeAWS()
	stdout, err := run(t, f, "", "tune", "--wait=false", "--max-jobs", "4", "--max-parallel-jobs", "2")
	require.NoError(t, err)

	assert.Contains(t, stdout, "submitted")
	require.Len(t, f.sm.TuningJobs, 1)
	assert.Equal(t, int32(4), aws.ToInt32(f.sm.TuningJobs[0].HyperParameterTuningJobConfig.ResourceLimits.MaxNumberOfTrainingJobs))
	assert.Zero(t, f.sm.TuningDescribes)
}

func TestTuneCommandInvalidParallelism(t *testing.T) {
	f := newFakeAWS()
	_, err := run(t, f, "", "tune", "--max-jobs", "2", "--max-parallel-jobs", "3")

	var vErr *errors.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Empty(t, f.sm.TuningJobs)
}

func TestTuneReportCommand(t *testing.T) {
	f := newFakeAWS()
	f.sm.Trials = []types.HyperParameterTrainingJobSummary{{
		TrainingJobName:      aws.String("trial-1"),
		TrainingJobStatus:    types.TrainingJobStatusCompleted,
		CreationTime:         aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		TunedHyperParameters: map[string]string{"max_depth": "5", "eta": "0.2"},
		FinalHyperParameterTuningJobObjectiveMetric: &types.FinalHyperParameterTuningJobObjectiveMetric{
			MetricName: aws.String("validation:logloss"),
			Value:      aws.Float32(0.5),
		},
	}, {
		TrainingJobName:      aws.String("trial-2"),
		TrainingJobStatus:    types.TrainingJobStatusCompleted,
		CreationTime:         aws.Time(time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)),
		TunedHyperParameters: map[string]string{"max_depth": "3", "eta": "0.4"},
		FinalHyperParameterTuningJobObjectiveMetric: &types.FinalHyperParameterTuningJobObjectiveMetric{
			MetricName: aws.String("validation:logloss"),
			Value:      aws.Float32(0.75),
		},
	}}
	chart := filepath.Join(t.TempDir(), "trials.png")

	stdout, err := run(t, f, "", "tune", "report", "job-1", "--chart", chart)
	require.NoError(t, err)

	assert.Contains(t, stdout, "trial-1")
	assert.Contains(t, stdout, "trial-2")
	assert.Contains(t, stdout, "eta=0.2 max_depth=5")
	assert.Contains(t, stdout, "best: trial-1 validation:logloss=0.5 eta=0.2 max_depth=5\n")
	assert.FileExists(t, chart)
}

func TestTrainCommandLocal(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "processed.csv")
	var csv strings.Builder
	csv.WriteString("NAICS,Term,Default\n")
	for i := 0; i < 40; i++ {
		term := 12 * (i%10 + 1)
		csv.WriteString(fmt.Sprintf("%d,%d,%d\n", 23+i%5, term, map[bool]int{true: 1, false: 0}[term <= 60]))
	}
	require.NoError(t, os.WriteFile(input, []byte(csv.String()), 0o644))

	f := newFakeAWS()
	model := filepath.Join(dir, "xgb_model.tar.gz")
	stdout, err := run(t, f, "", "--config", remoteFreeConfig(t), "train", "--local",
		"--input", input, "--output", model, "--extract")
	require.NoError(t, err)

	assert.Contains(t, stdout, "saved to "+model)
	assert.Empty(t, f.regions)
	assert.Empty(t, f.sm.Ops)
	assert.FileExists(t, model)
	assert.FileExists(t, filepath.Join(dir, training.LocalModelFileName))

	m, err := training.ReadManifest(training.ManifestPath(model))
	require.NoError(t, err)
	assert.Equal(t, 32, m.TrainRows)
	assert.Equal(t, 8, m.ValidationRows)
	assert.True(t, strings.HasPrefix(m.ModelURI, "file://"), m.ModelURI)
}

// remoteFreeConfig writes a config file that clears the role and bucket.
func remoteFreeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loanboost.yaml")
	require.NoError(t, os.WriteFile(path, []byte("role_arn: \"\"\nbucket: \"\"\n"), 0o644))
	return path
}

func TestCommandsCheckOnlyTheRemoteSettingsTheyUse(t *testing.T) {
	cfgPath := remoteFreeConfig(t)

	f := newFakeAWS()
	_, err := run(t, f, "", "--config", cfgPath, "invoke", "--payload", "1")
	require.NoError(t, err)
	_, err = run(t, f, "", "--config", cfgPath, "undeploy", "--endpoint-name", "ep")
	require.NoError(t, err)
	_, err = run(t, f, "", "--config", cfgPath, "tune", "report", "job-1")
	require.NoError(t, err)

	_, err = run(t, f, "", "--config", cfgPath, "deploy", "--role", "arn:aws:iam::1:role/sm",
		"--model-data", "s3://b/model.tar.gz", "--endpoint-name", "ep", "--poll-interval", "1ms")
	require.NoError(t, err)

	var vErr *errors.ValidationError
	_, err = run(t, f, "", "--config", cfgPath, "deploy", "--model-data", "s3://b/model.tar.gz")
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "role_arn", vErr.ParamName)

	_, err = run(t, f, "", "--config", cfgPath, "train", "--role", "arn:aws:iam::1:role/sm")
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "bucket", vErr.ParamName)

	_, err = run(t, f, "", "--config", cfgPath, "tune", "--role", "arn:aws:iam::1:role/sm", "--wait=false")
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "bucket", vErr.ParamName)
	assert.Empty(t, f.sm.TuningJobs)
}

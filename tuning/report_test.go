package tuning

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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary(name string, minute int, status types.TrainingJobStatus, objective *float32) types.HyperParameterTrainingJobSummary {
	s := types.HyperParameterTrainingJobSummary{
		TrainingJobName:      aws.String(name),
		TrainingJobStatus:    status,
		CreationTime:         aws.Time(time.Date(2024, 5, 1, 12, minute, 0, 0, time.UTC)),
		TunedHyperParameters: map[string]string{"max_depth": "4"},
	}
	if objective != nil {
		s.FinalHyperParameterTuningJobObjectiveMetric = &types.FinalHyperParameterTuningJobObjectiveMetric{
			MetricName: aws.String(DefaultObjectiveMetric),
			Value:      objective,
		}
	}
	return s
}

func TestReportPaginates(t *testing.T) {
	sm := &platformtest.StubSageMaker{
		PageSize: 2,
		Trials: []types.HyperParameterTrainingJobSummary{
			summary("t-3", 3, types.TrainingJobStatusCompleted, aws.Float32(0.30)),
			summary("t-1", 1, types.TrainingJobStatusCompleted, aws.Float32(0.40)),
			summary("t-4", 4, types.TrainingJobStatusFailed, nil),
			summary("t-2", 2, types.TrainingJobStatusCompleted, aws.Float32(0.25)),
			summary("t-5", 5, types.TrainingJobStatusStopped, nil),
		},
	}

	trials, err := newTestTuner(sm, platformtest.NewMemoryStore()).Report(context.Background(), "job")
	require.NoError(t, err)

	names := make([]string, len(trials))
	for i, tr := range trials {
		names[i] = tr.JobName
	}
	assert.Equal(t, []string{"t-1", "t-2", "t-3", "t-4", "t-5"}, names)
	assert.Equal(t, 3, countOps(sm.Ops, "ListTrainingJobsForHyperParameterTuningJob"))
	assert.False(t, trials[3].HasObjective)
	assert.Equal(t, "Failed", trials[3].Status)

	best, ok := Best(trials)
	require.True(t, ok)
	assert.Equal(t, "t-2", best.JobName)
	assert.InDelta(t, 0.25, best.ObjectiveValue, 1e-6)
}

func TestBestNoObjective(t *testing.T) {
	_, ok := Best([]Trial{{JobName: "a"}, {JobName: "b"}})
	assert.False(t, ok)
}

func TestWriteChart(t *testing.T) {
	trials := []Trial{
		{JobName: "a", ObjectiveValue: 0.4, HasObjective: true},
		{JobName: "b"},
		{JobName: "c", ObjectiveValue: 0.3, HasObjective: true},
		{JobName: "d", ObjectiveValue: 0.35, HasObjective: true},
	}
	path := filepath.Join(t.TempDir(), "tuning.png")
	require.NoError(t, WriteChart(trials, DefaultObjectiveMetric, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestWriteChartEmpty(t *testing.T) {
	err := WriteChart([]Trial{{JobName: "a"}}, DefaultObjectiveMetric, filepath.Join(t.TempDir(), "x.png"))
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func countOps(ops []string, op string) int {
	n := 0
	for _, o := range ops {
		if o == op {
			n++
		}
	}
	return n
}

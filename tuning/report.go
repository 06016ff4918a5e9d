package tuning

import (
	"context"
	"sort"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Trial is one training job launched by a tuning job.
type Trial struct {
	JobName         string
	Status          string
	ObjectiveValue  float64
	HasObjective    bool
	HyperParameters map[string]string
	CreatedAt       time.Time
}

// Report lists every trial of the tuning job, oldest first.
func (t *Tuner) Report(ctx context.Context, name string) ([]Trial, error) {
	paginator := sagemaker.NewListTrainingJobsForHyperParameterTuningJobPaginator(t.client,
		&sagemaker.ListTrainingJobsForHyperParameterTuningJobInput{
			HyperParameterTuningJobName: aws.String(name),
		})

	var trials []Trial
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.NewRemoteError("ListTrainingJobsForHyperParameterTuningJob", name, err)
		}
		for _, s := range page.TrainingJobSummaries {
			trial := Trial{
				JobName:         aws.ToString(s.TrainingJobName),
				Status:          string(s.TrainingJobStatus),
				HyperParameters: s.TunedHyperParameters,
				CreatedAt:       aws.ToTime(s.CreationTime),
			}
			if m := s.FinalHyperParameterTuningJobObjectiveMetric; m != nil && m.Value != nil {
				trial.ObjectiveValue = float64(*m.Value)
				trial.HasObjective = true
			}
			trials = append(trials, trial)
		}
	}

	sort.SliceStable(trials, func(i, j int) bool {
		return trials[i].CreatedAt.Before(trials[j].CreatedAt)
	})
	t.logger.Info("Tuning trials listed",
		log.OperationKey, log.OperationTune,
		log.JobNameKey, name,
		"tuning.trials", len(trials),
	)
	return trials, nil
}

// Best returns the trial with the lowest objective value.
func Best(trials []Trial) (Trial, bool) {
	var best Trial
	found := false
	for _, tr := range trials {
		if tr.HasObjective && (!found || tr.ObjectiveValue < best.ObjectiveValue) {
			best, found = tr, true
		}
	}
	return best, found
}

// WriteChart renders the objective value of each trial, in launch order,
// together with the running best, as a PNG (or any format gonum/plot
// infers from the extension of path).
func WriteChart(trials []Trial, metric, path string) error {
	var pts, bestPts plotter.XYs
	best := 0.0
	for i, tr := range trials {
		if !tr.HasObjective {
			continue
		}
		if len(pts) == 0 || tr.ObjectiveValue < best {
			best = tr.ObjectiveValue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: tr.ObjectiveValue})
		bestPts = append(bestPts, plotter.XY{X: float64(i + 1), Y: best})
	}
	if len(pts) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "no trial reported an objective value")
	}

	p := plot.New()
	p.Title.Text = "Hyperparameter tuning"
	p.X.Label.Text = "trial"
	p.Y.Label.Text = metric

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	s.Radius = vg.Points(3)
	p.Add(s)

	l, err := plotter.NewLine(bestPts)
	if err != nil {
		return errors.Wrap(err, "line")
	}
	l.LineStyle.Width = vg.Points(1.5)
	p.Add(l)
	p.Legend.Add("trial", s)
	p.Legend.Add("best so far", l)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	return nil
}

package training

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/YuminosukeSato/loanboost/lightgbm"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
)

// Local fit naming.
const (
	DefaultLocalJobBaseName = "loanboost-local"
	LocalModelFileName      = "model.txt"
	localArchiveName        = "model.tar.gz"
)

// LocalFitter boosts trees in process on the channel files. Like a
// training job it packs the model as <outputDir>/<job>/model.tar.gz and
// reports it by file:// URI; pair it with platform.FileStore.
type LocalFitter struct {
	outputDir string
	logger    log.Logger
}

// NewLocalFitter creates a LocalFitter writing under outputDir. An empty
// outputDir means an "output" directory beside the channel files. A nil
// logger uses the process logger.
func NewLocalFitter(outputDir string, logger log.Logger) *LocalFitter {
	if logger == nil {
		logger = log.GetLoggerWithName("training.local")
	}
	return &LocalFitter{outputDir: outputDir, logger: logger}
}

// Fit trains on in.TrainPath, stops early on in.ValidationPath after
// in.Params.EarlyStoppingRounds rounds without improvement and keeps the
// best iteration.
func (f *LocalFitter) Fit(ctx context.Context, in FitInput) (*FitOutput, error) {
	start := time.Now()
	jobName := platform.UniqueName(DefaultLocalJobBaseName, platform.MaxJobNameLen)

	train, err := ReadChannelFile(in.TrainPath)
	if err != nil {
		return nil, err
	}
	valid, err := ReadChannelFile(in.ValidationPath)
	if err != nil {
		return nil, err
	}

	params := lightgbm.DefaultParams()
	params.Objective = in.Params.Objective
	params.Metric = in.Params.EvalMetric
	params.NumIterations = in.Params.NumRound
	params.EarlyStopping = in.Params.EarlyStoppingRounds

	trainer := lightgbm.NewTrainer(params)
	if err := trainer.FitWithValidation(ctx, train.X, train.Y, &lightgbm.ValidationData{X: valid.X, Y: valid.Y}); err != nil {
		return nil, errors.Wrapf(err, "local fit %s", jobName)
	}
	model := trainer.GetModel()
	model.FeatureNames = in.FeatureNames

	base := f.outputDir
	if base == "" {
		base = filepath.Join(filepath.Dir(in.TrainPath), "output")
	}
	outDir := filepath.Join(base, jobName)
	modelDir := filepath.Join(outDir, "model")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", modelDir)
	}
	if err := model.SaveToFile(filepath.Join(modelDir, LocalModelFileName)); err != nil {
		return nil, err
	}
	archivePath := filepath.Join(outDir, localArchiveName)
	if err := packModel(modelDir, archivePath); err != nil {
		return nil, err
	}
	uri, err := platform.FileURI(archivePath)
	if err != nil {
		return nil, err
	}

	metrics := fitMetrics(trainer.History(), model.BestIteration, in.Params.EvalMetric)
	f.logger.Info("Local training finished",
		log.OperationKey, log.OperationFit,
		log.JobNameKey, jobName,
		log.IterationKey, len(trainer.History()),
		log.BestIterationKey, model.BestIteration,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &FitOutput{
		JobName:   jobName,
		ModelURI:  uri,
		ModelFile: LocalModelFileName,
		Metrics:   metrics,
	}, nil
}

func packModel(dir, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return platform.PackDir(dir, f)
}

// fitMetrics reports the losses of the kept iteration under the metric
// names a training job emits ("train:logloss", "validation:logloss").
func fitMetrics(history []lightgbm.IterationResult, best int, metric string) map[string]float64 {
	if len(history) == 0 {
		return nil
	}
	if best < 0 || best >= len(history) {
		best = len(history) - 1
	}
	name := strings.TrimPrefix(metric, "binary_")
	if name == "" {
		name = "logloss"
	}
	res := history[best]
	return map[string]float64{
		"train:" + name:      res.TrainLoss,
		"validation:" + name: res.ValidationLoss,
		"best_iteration":     float64(res.Iteration),
	}
}

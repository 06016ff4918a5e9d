package training

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/loanboost/frame"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
)

// Defaults of the original training run.
const (
	DefaultValidationFraction = 0.2
	DefaultSeed               = 42
	DefaultOutputPath         = "xgb_model.tar.gz"
)

// Trainer prepares channels, fits through a Fitter and fetches the model.
type Trainer struct {
	fitter Fitter
	store  platform.ObjectStore

	label      string
	fraction   float64
	seed       int64
	params     Params
	outputPath string
	extract    bool
	workDir    string
	logger     log.Logger
}

// NewTrainer creates a Trainer. store is used to download the model
// artifact the fitter reports.
func NewTrainer(fitter Fitter, store platform.ObjectStore, opts ...Option) *Trainer {
	t := &Trainer{
		fitter:     fitter,
		store:      store,
		label:      DefaultLabelColumn,
		fraction:   DefaultValidationFraction,
		seed:       DefaultSeed,
		params:     DefaultParams(),
		outputPath: DefaultOutputPath,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.GetLoggerWithName("training")
	}
	return t
}

// Prepare loads inputPath and computes the split without side effects.
func (t *Trainer) Prepare(inputPath string) (*Dataset, Split, error) {
	tbl, err := frame.ReadFile(inputPath)
	if err != nil {
		return nil, Split{}, err
	}
	ds, err := NewDataset(tbl, t.label)
	if err != nil {
		return nil, Split{}, errors.Wrapf(err, "load %s", inputPath)
	}
	split, err := TrainValidationSplit(ds.Rows(), t.fraction, t.seed)
	if err != nil {
		return nil, Split{}, err
	}
	return ds, split, nil
}

// Train fits a model on inputPath and downloads its artifact to the output
// path. The returned manifest is also written beside the artifact.
func (t *Trainer) Train(ctx context.Context, inputPath string) (*Manifest, error) {
	start := time.Now()

	ds, split, err := t.Prepare(inputPath)
	if err != nil {
		return nil, err
	}
	positiveRate := ds.PositiveRate(nil)
	t.logger.Info("Dataset split",
		log.OperationKey, log.OperationSplit,
		log.PhaseKey, log.PhaseTraining,
		log.PathKey, inputPath,
		log.SamplesKey, ds.Rows(),
		log.FeaturesKey, len(ds.FeatureNames),
		"split.train_rows", len(split.Train),
		"split.validation_rows", len(split.Validation),
		log.PositiveRateKey, positiveRate,
		log.RandomSeedKey, t.seed,
	)

	workDir := t.workDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "loanboost-train-")
		if err != nil {
			return nil, errors.Wrap(err, "create work directory")
		}
		defer os.RemoveAll(workDir)
	}
	in := FitInput{
		TrainPath:      filepath.Join(workDir, TrainFile),
		ValidationPath: filepath.Join(workDir, ValidationFile),
		FeatureNames:   ds.FeatureNames,
		Params:         t.params,
	}
	if err := WriteChannelFile(in.TrainPath, ds, split.Train); err != nil {
		return nil, err
	}
	if err := WriteChannelFile(in.ValidationPath, ds, split.Validation); err != nil {
		return nil, err
	}

	fit, err := t.fitter.Fit(ctx, in)
	if err != nil {
		return nil, errors.Wrap(err, "fit")
	}

	if err := t.download(ctx, fit.ModelURI); err != nil {
		return nil, err
	}
	m := &Manifest{
		JobName:         fit.JobName,
		ModelURI:        fit.ModelURI,
		ModelPath:       t.outputPath,
		FeatureNames:    ds.FeatureNames,
		TrainRows:       len(split.Train),
		ValidationRows:  len(split.Validation),
		PositiveRate:    positiveRate,
		HyperParameters: t.params.HyperParameters(),
		Metrics:         fit.Metrics,
		CreatedAt:       time.Now().UTC(),
	}
	if t.extract {
		modelFile := fit.ModelFile
		if modelFile == "" {
			modelFile = platform.ModelFileName
		}
		m.BoosterPath, err = t.extractBooster(modelFile)
		if err != nil {
			return nil, err
		}
	}
	if err := WriteManifest(ManifestPath(t.outputPath), m); err != nil {
		return nil, err
	}

	fields := []any{
		log.OperationKey, log.OperationFit,
		log.JobNameKey, m.JobName,
		log.URIKey, m.ModelURI,
		log.PathKey, m.ModelPath,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	for name, v := range m.Metrics {
		fields = append(fields, "metric."+name, v)
	}
	t.logger.Info("Model saved", fields...)
	return m, nil
}

// download fetches uri to the output path. A failed download leaves no
// file behind.
func (t *Trainer) download(ctx context.Context, uri string) (err error) {
	f, err := os.Create(t.outputPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", t.outputPath)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", t.outputPath)
		}
		if err != nil {
			os.Remove(t.outputPath)
		}
	}()
	if _, err := t.store.Download(ctx, uri, f); err != nil {
		return errors.Wrapf(err, "download %s", uri)
	}
	return nil
}

func (t *Trainer) extractBooster(modelFile string) (path string, err error) {
	archive, err := os.Open(t.outputPath)
	if err != nil {
		return "", errors.Wrapf(err, "open %s", t.outputPath)
	}
	defer archive.Close()

	path = filepath.Join(filepath.Dir(t.outputPath), modelFile)
	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	if err := platform.ExtractFile(archive, modelFile, out); err != nil {
		return "", err
	}
	return path, nil
}

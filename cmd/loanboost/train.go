package main

import (
	"fmt"
	"path/filepath"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/YuminosukeSato/loanboost/training"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func (a *app) trainCmd(d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the boosted-tree classifier with a SageMaker training job",
		Long: `Splits the processed table 80/20 with a fixed seed, uploads both parts,
runs a training job with the built-in XGBoost image (binary:logistic,
logloss, early stopping on the validation channel) and downloads the model
archive. A JSON manifest describing the run is written next to it.

With --local the same split is boosted in process instead and no AWS
settings are needed; the archive then holds a model.txt in LightGBM text
format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			fs := cmd.Flags()
			setString(fs, "input", &cfg.ProcessedDataPath)
			setString(fs, "output", &cfg.ModelPath)
			setBool(fs, "extract", &cfg.ExtractModel)
			setInt64(fs, "seed", &cfg.Seed)
			setString(fs, "role", &cfg.RoleARN)
			setString(fs, "bucket", &cfg.Bucket)
			setString(fs, "prefix", &cfg.Prefix)
			setString(fs, "instance-type", &cfg.InstanceType)
			setBool(fs, "local", &cfg.LocalTraining)
			if err := cfg.Validate(); err != nil {
				return err
			}

			var (
				fitter training.Fitter
				store  platform.ObjectStore
			)
			if cfg.LocalTraining {
				outputDir := filepath.Join(filepath.Dir(cfg.ModelPath), "output")
				fitter, store = training.NewLocalFitter(outputDir, nil), platform.NewFileStore()
			} else {
				r, err := a.connect(cmd.Context(), config.NeedRole, config.NeedBucket)
				if err != nil {
					return err
				}
				sm, err := training.NewSageMakerFitter(r.SageMaker, r.Store, training.SageMakerConfig{
					Region:           r.Region,
					RoleARN:          cfg.RoleARN,
					Bucket:           cfg.Bucket,
					Prefix:           cfg.Prefix,
					FrameworkVersion: cfg.FrameworkVersion,
					InstanceType:     cfg.InstanceType,
					InstanceCount:    cfg.InstanceCount,
					VolumeSizeGB:     cfg.VolumeSizeGB,
					MaxRuntime:       cfg.MaxRuntime,
					PollInterval:     cfg.PollInterval,
				})
				if err != nil {
					return err
				}
				fitter, store = sm, r.Store
			}

			params := training.DefaultParams()
			params.NumRound = cfg.NumRound
			params.EarlyStoppingRounds = cfg.EarlyStoppingRounds
			trainer := training.NewTrainer(fitter, store,
				training.WithLabelColumn(cfg.LabelColumn),
				training.WithValidationFraction(cfg.ValidationFraction),
				training.WithSeed(cfg.Seed),
				training.WithParams(params),
				training.WithOutputPath(cfg.ModelPath),
				training.WithExtractModel(cfg.ExtractModel),
			)
			m, err := trainer.Train(cmd.Context(), cfg.ProcessedDataPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "training job %s: model %s saved to %s\n", m.JobName, m.ModelURI, m.ModelPath)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.String("input", d.ProcessedDataPath, "processed CSV file")
	fs.String("output", d.ModelPath, "local path of the downloaded model archive")
	fs.Bool("extract", d.ExtractModel, "also extract the xgboost-model booster file")
	fs.Int64("seed", d.Seed, "seed of the train/validation split")
	addRemoteFlags(fs, d)
	fs.String("prefix", d.Prefix, "S3 key prefix for channels and output")
	fs.String("instance-type", d.InstanceType, "training instance type")
	fs.Bool("local", d.LocalTraining, "boost in process instead of running a SageMaker training job")
	return cmd
}

func addRemoteFlags(fs *pflag.FlagSet, d *config.Config) {
	fs.String("role", d.RoleARN, "SageMaker execution role ARN")
	fs.String("bucket", d.Bucket, "S3 bucket")
}

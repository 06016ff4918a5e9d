package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/tuning"
	"github.com/spf13/cobra"
)

func (a *app) tuneCmd(d *config.Config) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Run a hyperparameter tuning job",
		Long: `Submits a Bayesian tuning job minimizing validation:logloss over eta [0, 1],
min_child_weight [1, 10] and max_depth [1, 10] with the train and validation
channels under s3://<bucket>/<prefix>. With --entry-point the source
directory is packed and run in script mode.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			fs := cmd.Flags()
			setString(fs, "role", &cfg.RoleARN)
			setString(fs, "bucket", &cfg.Bucket)
			setString(fs, "prefix", &cfg.Prefix)
			setInt(fs, "max-jobs", &cfg.MaxJobs)
			setInt(fs, "max-parallel-jobs", &cfg.MaxParallelJobs)
			setString(fs, "entry-point", &cfg.EntryPoint)
			setString(fs, "source-dir", &cfg.SourceDir)
			setDuration(fs, "poll-interval", &cfg.PollInterval)
			if err := cfg.Validate(); err != nil {
				return err
			}

			r, err := a.connect(cmd.Context(), config.NeedRole, config.NeedBucket)
			if err != nil {
				return err
			}
			req := tuning.DefaultRequest(cfg.RoleARN, cfg.Bucket)
			req.Prefix = cfg.Prefix
			req.MaxJobs = cfg.MaxJobs
			req.MaxParallelJobs = cfg.MaxParallelJobs
			req.FrameworkVersion = cfg.FrameworkVersion
			req.InstanceType = cfg.InstanceType
			req.InstanceCount = cfg.InstanceCount
			req.VolumeSizeGB = cfg.VolumeSizeGB
			req.MaxRuntime = cfg.MaxRuntime
			req.EntryPoint = cfg.EntryPoint
			req.SourceDir = cfg.SourceDir
			req.StaticHyperParameters["num_round"] = fmt.Sprint(cfg.NumRound)

			tuner := tuning.NewTuner(r.SageMaker, r.Store, r.Region, cfg.PollInterval)
			name, err := tuner.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tuning job %s submitted\n", name)
			if !wait {
				return nil
			}

			res, err := tuner.Wait(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "best training job %s: %s = %g\n", res.BestTrainingJob, res.ObjectiveMetric, res.ObjectiveValue)
			fmt.Fprintf(out, "hyperparameters: %s\n", formatParams(res.HyperParameters))
			return nil
		},
	}
	fs := cmd.Flags()
	addRemoteFlags(fs, d)
	fs.String("prefix", d.Prefix, "S3 key prefix of the train and validation channels")
	fs.Int("max-jobs", d.MaxJobs, "total training jobs")
	fs.Int("max-parallel-jobs", d.MaxParallelJobs, "training jobs running at once")
	fs.String("entry-point", d.EntryPoint, "training script run in script mode")
	fs.String("source-dir", d.SourceDir, "directory packed with the entry point")
	fs.Duration("poll-interval", d.PollInterval, "status polling interval")
	fs.BoolVar(&wait, "wait", true, "wait for the tuning job to finish")

	cmd.AddCommand(a.tuneReportCmd(d))
	return cmd
}

func (a *app) tuneReportCmd(d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report JOB_NAME",
		Short: "List the trials of a tuning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			setString(cmd.Flags(), "chart", &cfg.ReportPath)

			r, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			tuner := tuning.NewTuner(r.SageMaker, r.Store, r.Region, cfg.PollInterval)
			trials, err := tuner.Report(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TRAINING JOB\tSTATUS\tOBJECTIVE\tHYPERPARAMETERS")
			for _, tr := range trials {
				objective := "-"
				if tr.HasObjective {
					objective = fmt.Sprintf("%g", tr.ObjectiveValue)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tr.JobName, tr.Status, objective, formatParams(tr.HyperParameters))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if best, ok := tuning.Best(trials); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "best: %s %s=%g %s\n",
					best.JobName, tuning.DefaultObjectiveMetric, best.ObjectiveValue, formatParams(best.HyperParameters))
			}

			if cfg.ReportPath != "" {
				if err := tuning.WriteChart(trials, tuning.DefaultObjectiveMetric, cfg.ReportPath); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", cfg.ReportPath)
			}
			return nil
		},
	}
	cmd.Flags().String("chart", d.ReportPath, "write an objective-per-trial chart (PNG, SVG or PDF) to this path")
	return cmd
}

func formatParams(hp map[string]string) string {
	keys := make([]string, 0, len(hp))
	for k := range hp {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + hp[k]
	}
	return strings.Join(parts, " ")
}

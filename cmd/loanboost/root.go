package main

import (
	"context"
	"time"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// remote is the set of AWS boundaries a command may need.
type remote struct {
	Region    string
	SageMaker platform.SageMakerAPI
	Runtime   platform.RuntimeAPI
	Store     platform.ObjectStore
}

// remoteFactory builds the AWS clients for a region. Tests replace it.
type remoteFactory func(ctx context.Context, region string) (*remote, error)

func newAWSRemote(ctx context.Context, region string) (*remote, error) {
	c, err := platform.NewClients(ctx, region)
	if err != nil {
		return nil, err
	}
	return &remote{
		Region:    c.Region,
		SageMaker: c.SageMaker,
		Runtime:   c.Runtime,
		Store:     c.Store,
	}, nil
}

// app carries state shared by every subcommand of one invocation.
type app struct {
	configPath string
	logLevel   string
	region     string

	cfg       *config.Config
	newRemote remoteFactory
}

func newRootCmd(factory remoteFactory) *cobra.Command {
	a := &app{newRemote: factory}
	defaults := config.Default()

	root := &cobra.Command{
		Use:   "loanboost",
		Short: "Train and serve the small-business loan default model on SageMaker",
		Long: `loanboost prepares the SBA loan table, trains an XGBoost classifier with
the built-in SageMaker image, sweeps its hyperparameters, hosts the model on
an endpoint and sends rows to it for scoring.

Settings come from built-in defaults, then the --config file (.yaml, .yml or
.hcl), then flags given on the command line.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (.yaml, .yml or .hcl)")
	pf.StringVar(&a.logLevel, "log-level", defaults.LogLevel, "log level: debug, info, warn, error")
	pf.StringVar(&a.region, "region", "", "AWS region (default: from the AWS configuration)")

	root.AddCommand(
		a.preprocessCmd(defaults),
		a.trainCmd(defaults),
		a.tuneCmd(defaults),
		a.deployCmd(defaults),
		a.undeployCmd(defaults),
		a.invokeCmd(defaults),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	fs := cmd.Flags()
	setString(fs, "log-level", &cfg.LogLevel)
	setString(fs, "region", &cfg.Region)
	if err := log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// connect builds AWS clients after checking the settings the command needs.
func (a *app) connect(ctx context.Context, needs ...config.Remote) (*remote, error) {
	if err := a.cfg.RequireRemote(needs...); err != nil {
		return nil, err
	}
	r, err := a.newRemote(ctx, a.cfg.Region)
	if err != nil {
		return nil, errors.Wrap(err, "connect to AWS")
	}
	return r, nil
}

// Flag values replace configuration only when given explicitly.

func setString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		*dst, _ = fs.GetString(name)
	}
}

func setInt(fs *pflag.FlagSet, name string, dst *int) {
	if fs.Changed(name) {
		*dst, _ = fs.GetInt(name)
	}
}

func setInt64(fs *pflag.FlagSet, name string, dst *int64) {
	if fs.Changed(name) {
		*dst, _ = fs.GetInt64(name)
	}
}

func setBool(fs *pflag.FlagSet, name string, dst *bool) {
	if fs.Changed(name) {
		*dst, _ = fs.GetBool(name)
	}
}

func setDuration(fs *pflag.FlagSet, name string, dst *time.Duration) {
	if fs.Changed(name) {
		*dst, _ = fs.GetDuration(name)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/YuminosukeSato/loanboost/config"
	"github.com/YuminosukeSato/loanboost/deployment"
	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/training"
	"github.com/spf13/cobra"
)

func (a *app) deployCmd(d *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Host a trained model on a SageMaker endpoint",
		Long: `Creates a model from the XGBoost serving image and the model archive on S3,
an endpoint configuration with one AllTraffic variant, and the endpoint, then
waits until it is InService.

Without --model-data the S3 location is read from the manifest written by
"loanboost train" next to --model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			fs := cmd.Flags()
			setString(fs, "model-data", &cfg.ModelData)
			setString(fs, "model", &cfg.ModelPath)
			setString(fs, "endpoint-name", &cfg.EndpointName)
			setString(fs, "role", &cfg.RoleARN)
			setString(fs, "instance-type", &cfg.InstanceType)
			setDuration(fs, "poll-interval", &cfg.PollInterval)

			modelData, err := resolveModelData(cfg)
			if err != nil {
				return err
			}
			r, err := a.connect(cmd.Context(), config.NeedRole)
			if err != nil {
				return err
			}

			req := deployment.DefaultRequest(cfg.EndpointName, modelData, cfg.RoleARN)
			req.FrameworkVersion = cfg.FrameworkVersion
			req.InstanceType = cfg.InstanceType
			req.InstanceCount = cfg.InstanceCount
			ep, err := deployment.NewDeployer(r.SageMaker, r.Region, cfg.PollInterval).Deploy(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "endpoint %s is %s (model %s)\n", ep.Name, ep.Status, ep.ModelName)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.String("model-data", d.ModelData, "S3 URI of model.tar.gz")
	fs.String("model", d.ModelPath, "local model archive whose manifest names the S3 URI")
	fs.String("endpoint-name", d.EndpointName, "endpoint to create")
	fs.String("role", d.RoleARN, "SageMaker execution role ARN")
	fs.String("instance-type", d.InstanceType, "hosting instance type")
	fs.Duration("poll-interval", d.PollInterval, "status polling interval")
	return cmd
}

// resolveModelData prefers an explicit S3 URI and falls back to the
// training manifest.
func resolveModelData(cfg *config.Config) (string, error) {
	if cfg.ModelData != "" {
		return cfg.ModelData, nil
	}
	path := training.ManifestPath(cfg.ModelPath)
	if _, err := os.Stat(path); err != nil {
		return "", errors.NewValidationError("model_data",
			"not set and no training manifest found at "+path, cfg.ModelData)
	}
	m, err := training.ReadManifest(path)
	if err != nil {
		return "", err
	}
	return m.ModelURI, nil
}

func (a *app) undeployCmd(d *config.Config) *cobra.Command {
	var deleteModel bool
	cmd := &cobra.Command{
		Use:   "undeploy",
		Short: "Delete an endpoint and its configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			setString(cmd.Flags(), "endpoint-name", &cfg.EndpointName)

			r, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := deployment.NewDeployer(r.SageMaker, r.Region, cfg.PollInterval).
				Delete(cmd.Context(), cfg.EndpointName, deleteModel); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "endpoint %s deleted\n", cfg.EndpointName)
			return nil
		},
	}
	cmd.Flags().String("endpoint-name", d.EndpointName, "endpoint to delete")
	cmd.Flags().BoolVar(&deleteModel, "delete-model", false, "also delete the models behind the endpoint")
	return cmd
}

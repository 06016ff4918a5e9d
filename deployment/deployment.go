// Package deployment hosts a trained model artifact on a SageMaker
// real-time endpoint and tears it down again.
package deployment

import (
	"context"
	"time"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/YuminosukeSato/loanboost/pkg/log"
	"github.com/YuminosukeSato/loanboost/platform"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

const (
	// VariantName is the single production variant of every endpoint.
	VariantName = "AllTraffic"
	// DefaultModelBaseName prefixes generated model names.
	DefaultModelBaseName = "loanboost-xgb-model"
	// DefaultWaitTimeout bounds how long Deploy waits for InService.
	DefaultWaitTimeout = time.Hour
)

// Request describes one deployment.
type Request struct {
	EndpointName     string
	ModelData        string
	RoleARN          string
	FrameworkVersion string
	InstanceType     string
	InstanceCount    int
	ModelName        string
	WaitTimeout      time.Duration
}

// DefaultRequest returns the hosting setup of the original deployment: one
// ml.m5.xlarge running the XGBoost 1.3-1 serving image.
func DefaultRequest(endpointName, modelData, roleARN string) Request {
	return Request{
		EndpointName:     endpointName,
		ModelData:        modelData,
		RoleARN:          roleARN,
		FrameworkVersion: "1.3-1",
		InstanceType:     "ml.m5.xlarge",
		InstanceCount:    1,
		WaitTimeout:      DefaultWaitTimeout,
	}
}

func (r *Request) validate() error {
	switch {
	case r.EndpointName == "":
		return errors.NewValidationError("endpoint_name", "must not be empty", r.EndpointName)
	case r.RoleARN == "":
		return errors.NewValidationError("role_arn", "must not be empty", r.RoleARN)
	case r.InstanceCount < 1:
		return errors.NewValidationError("instance_count", "must be at least 1", r.InstanceCount)
	case r.WaitTimeout <= 0:
		return errors.NewValidationError("wait_timeout", "must be positive", r.WaitTimeout)
	}
	if _, _, err := platform.ParseS3URI(r.ModelData); err != nil {
		return errors.Wrap(err, "model data")
	}
	return nil
}

// Endpoint is a hosted model.
type Endpoint struct {
	Name       string
	ARN        string
	Status     string
	ModelName  string
	ConfigName string
}

// Deployer creates and deletes endpoints in one region.
type Deployer struct {
	client       platform.SageMakerAPI
	region       string
	pollInterval time.Duration
	logger       log.Logger
}

// NewDeployer creates a Deployer polling endpoint status every pollInterval.
func NewDeployer(client platform.SageMakerAPI, region string, pollInterval time.Duration) *Deployer {
	return &Deployer{
		client:       client,
		region:       region,
		pollInterval: pollInterval,
		logger:       log.GetLoggerWithName("deployment"),
	}
}

// Deploy creates the model, endpoint configuration and endpoint, then waits
// until the endpoint is InService. Resources created before a failure are
// left in place.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Endpoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if d.pollInterval <= 0 {
		return nil, errors.NewValidationError("poll_interval", "must be positive", d.pollInterval)
	}
	image, err := platform.ImageURI(platform.FrameworkXGBoost, d.region, req.FrameworkVersion)
	if err != nil {
		return nil, err
	}

	modelName := req.ModelName
	if modelName == "" {
		modelName = platform.UniqueName(DefaultModelBaseName, platform.MaxJobNameLen)
	}
	logger := d.logger.With(log.EndpointNameKey, req.EndpointName)

	_, err = d.client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(modelName),
		ExecutionRoleArn: aws.String(req.RoleARN),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(image),
			ModelDataUrl: aws.String(req.ModelData),
		},
	})
	if err != nil {
		return nil, errors.NewRemoteError("CreateModel", modelName, err)
	}

	configName := req.EndpointName
	_, err = d.client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(configName),
		ProductionVariants: []types.ProductionVariant{{
			VariantName:          aws.String(VariantName),
			ModelName:            aws.String(modelName),
			InstanceType:         types.ProductionVariantInstanceType(req.InstanceType),
			InitialInstanceCount: aws.Int32(int32(req.InstanceCount)),
			InitialVariantWeight: aws.Float32(1),
		}},
	})
	if err != nil {
		return nil, errors.NewRemoteError("CreateEndpointConfig", configName, err)
	}

	_, err = d.client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(req.EndpointName),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return nil, errors.NewRemoteError("CreateEndpoint", req.EndpointName, err)
	}
	logger.Info("Endpoint creating",
		log.OperationKey, log.OperationDeploy,
		log.RegionKey, d.region,
		log.ImageKey, image,
		log.URIKey, req.ModelData,
		log.InstanceTypeKey, req.InstanceType,
	)

	out, err := d.waitInService(ctx, req.EndpointName, req.WaitTimeout)
	if err != nil {
		logger.Error("Endpoint did not reach InService", err)
		return nil, err
	}

	ep := &Endpoint{
		Name:       aws.ToString(out.EndpointName),
		ARN:        aws.ToString(out.EndpointArn),
		Status:     string(out.EndpointStatus),
		ModelName:  modelName,
		ConfigName: configName,
	}
	logger.Info("Endpoint in service", log.JobStatusKey, ep.Status)
	return ep, nil
}

func (d *Deployer) waitInService(ctx context.Context, name string, timeout time.Duration) (*sagemaker.DescribeEndpointOutput, error) {
	waiter := sagemaker.NewEndpointInServiceWaiter(d.client, func(o *sagemaker.EndpointInServiceWaiterOptions) {
		o.MinDelay = d.pollInterval
		o.MaxDelay = d.pollInterval
	})
	input := &sagemaker.DescribeEndpointInput{EndpointName: aws.String(name)}

	out, err := waiter.WaitForOutput(ctx, input, timeout)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, errors.Wrapf(ctx.Err(), "wait for endpoint %s", name)
	}
	desc, derr := d.client.DescribeEndpoint(ctx, input)
	if derr == nil && desc.EndpointStatus == types.EndpointStatusFailed {
		return nil, errors.NewRemoteStatusError("endpoint", name,
			string(desc.EndpointStatus), aws.ToString(desc.FailureReason))
	}
	return nil, errors.NewRemoteError("DescribeEndpoint", name, err)
}

// Delete removes the endpoint and its configuration. With deleteModel the
// models behind the configuration's variants are removed too.
func (d *Deployer) Delete(ctx context.Context, name string, deleteModel bool) error {
	ep, err := d.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{EndpointName: aws.String(name)})
	if err != nil {
		return errors.NewRemoteError("DescribeEndpoint", name, err)
	}
	configName := aws.ToString(ep.EndpointConfigName)

	var models []string
	if deleteModel {
		cfg, err := d.client.DescribeEndpointConfig(ctx, &sagemaker.DescribeEndpointConfigInput{
			EndpointConfigName: aws.String(configName),
		})
		if err != nil {
			return errors.NewRemoteError("DescribeEndpointConfig", configName, err)
		}
		for _, v := range cfg.ProductionVariants {
			if m := aws.ToString(v.ModelName); m != "" {
				models = append(models, m)
			}
		}
	}

	if _, err := d.client.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{EndpointName: aws.String(name)}); err != nil {
		return errors.NewRemoteError("DeleteEndpoint", name, err)
	}
	if _, err := d.client.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(configName),
	}); err != nil {
		return errors.NewRemoteError("DeleteEndpointConfig", configName, err)
	}
	for _, m := range models {
		if _, err := d.client.DeleteModel(ctx, &sagemaker.DeleteModelInput{ModelName: aws.String(m)}); err != nil {
			return errors.NewRemoteError("DeleteModel", m, err)
		}
	}

	d.logger.Info("Endpoint deleted",
		log.OperationKey, log.OperationUndeploy,
		log.EndpointNameKey, name,
		"endpoint.config_name", configName,
		"endpoint.deleted_models", models,
	)
	return nil
}

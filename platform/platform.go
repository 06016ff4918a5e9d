// Package platform is the boundary to AWS. Every SageMaker, SageMaker
// Runtime and S3 call made by the pipeline goes through the interfaces
// declared here, so each step can be tested against a stub.
package platform

import (
	"context"

	"github.com/YuminosukeSato/loanboost/pkg/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// SageMakerAPI is the subset of *sagemaker.Client the pipeline uses. The
// method set also satisfies the SDK waiter and paginator client interfaces.
type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)
	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)

	CreateHyperParameterTuningJob(ctx context.Context, params *sagemaker.CreateHyperParameterTuningJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateHyperParameterTuningJobOutput, error)
	DescribeHyperParameterTuningJob(ctx context.Context, params *sagemaker.DescribeHyperParameterTuningJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeHyperParameterTuningJobOutput, error)
	ListTrainingJobsForHyperParameterTuningJob(ctx context.Context, params *sagemaker.ListTrainingJobsForHyperParameterTuningJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsForHyperParameterTuningJobOutput, error)

	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)
	CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)
	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)
	DescribeEndpointConfig(ctx context.Context, params *sagemaker.DescribeEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointConfigOutput, error)
	DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error)
	DeleteEndpointConfig(ctx context.Context, params *sagemaker.DeleteEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error)
	DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
}

// RuntimeAPI is the subset of *sagemakerruntime.Client used for inference.
type RuntimeAPI interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

var (
	_ SageMakerAPI = (*sagemaker.Client)(nil)
	_ RuntimeAPI   = (*sagemakerruntime.Client)(nil)
	_ ObjectStore  = (*S3Store)(nil)
)

// Clients bundles the AWS clients built from one session.
type Clients struct {
	Region    string
	SageMaker *sagemaker.Client
	Runtime   *sagemakerruntime.Client
	Store     *S3Store
}

// NewClients loads the ambient AWS configuration (environment, shared
// config files, instance role). A non-empty region overrides the configured
// one. The runtime client never retries: an invocation is attempted once.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS configuration")
	}
	if cfg.Region == "" {
		return nil, errors.NewValidationError("region", "no AWS region configured", "")
	}

	runtime := sagemakerruntime.NewFromConfig(cfg, func(o *sagemakerruntime.Options) {
		o.Retryer = aws.NopRetryer{}
	})

	return &Clients{
		Region:    cfg.Region,
		SageMaker: sagemaker.NewFromConfig(cfg),
		Runtime:   runtime,
		Store:     NewS3Store(s3.NewFromConfig(cfg)),
	}, nil
}

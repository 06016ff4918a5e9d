package platformtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
)

const stubAccount = "arn:aws:sagemaker:us-east-1:123456789012"

// StubSageMaker answers SageMaker calls from its exported fields. Zero
// values describe a happy path: training jobs complete, tuning jobs
// complete, endpoints reach InService.
type StubSageMaker struct {
	mu sync.Mutex

	// Ops lists the operations called, in order.
	Ops []string

	TrainingJobs      []*sagemaker.CreateTrainingJobInput
	TuningJobs        []*sagemaker.CreateHyperParameterTuningJobInput
	Models            []*sagemaker.CreateModelInput
	EndpointConfigs   []*sagemaker.CreateEndpointConfigInput
	Endpoints         []*sagemaker.CreateEndpointInput
	DeletedEndpoints  []string
	DeletedConfigs    []string
	DeletedModels     []string
	TrainingDescribes int
	TuningDescribes   int

	// Training job outcome.
	TrainingStatus types.TrainingJobStatus
	FailureReason  string
	ModelArtifact  string
	FinalMetrics   map[string]float32

	// TuningStatuses is consumed one entry per describe call; the last
	// entry repeats. Empty means Completed.
	TuningStatuses []types.HyperParameterTuningJobStatus
	BestJob        *types.HyperParameterTrainingJobSummary
	Trials         []types.HyperParameterTrainingJobSummary
	PageSize       int

	EndpointStatus types.EndpointStatus

	// CreateErr, when set, is returned by every Create call.
	CreateErr error
}

func (s *StubSageMaker) record(op string) {
	s.Ops = append(s.Ops, op)
}

func (s *StubSageMaker) CreateTrainingJob(_ context.Context, params *sagemaker.CreateTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateTrainingJob")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.TrainingJobs = append(s.TrainingJobs, params)
	return &sagemaker.CreateTrainingJobOutput{
		TrainingJobArn: aws.String(stubAccount + ":training-job/" + aws.ToString(params.TrainingJobName)),
	}, nil
}

func (s *StubSageMaker) DescribeTrainingJob(_ context.Context, params *sagemaker.DescribeTrainingJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DescribeTrainingJob")
	s.TrainingDescribes++

	name := aws.ToString(params.TrainingJobName)
	status := s.TrainingStatus
	if status == "" {
		status = types.TrainingJobStatusCompleted
	}
	out := &sagemaker.DescribeTrainingJobOutput{
		TrainingJobName:   aws.String(name),
		TrainingJobStatus: status,
	}
	if s.FailureReason != "" {
		out.FailureReason = aws.String(s.FailureReason)
	}
	if status == types.TrainingJobStatusCompleted {
		artifact := s.ModelArtifact
		if artifact == "" && len(s.TrainingJobs) > 0 {
			artifact = aws.ToString(s.TrainingJobs[len(s.TrainingJobs)-1].OutputDataConfig.S3OutputPath) + "/" + name + "/output/model.tar.gz"
		}
		out.ModelArtifacts = &types.ModelArtifacts{S3ModelArtifacts: aws.String(artifact)}
		for metric, v := range s.FinalMetrics {
			out.FinalMetricDataList = append(out.FinalMetricDataList, types.MetricData{
				MetricName: aws.String(metric),
				Value:      aws.Float32(v),
			})
		}
	}
	return out, nil
}

func (s *StubSageMaker) CreateHyperParameterTuningJob(_ context.Context, params *sagemaker.CreateHyperParameterTuningJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateHyperParameterTuningJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateHyperParameterTuningJob")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.TuningJobs = append(s.TuningJobs, params)
	return &sagemaker.CreateHyperParameterTuningJobOutput{
		HyperParameterTuningJobArn: aws.String(stubAccount + ":hyper-parameter-tuning-job/" + aws.ToString(params.HyperParameterTuningJobName)),
	}, nil
}

func (s *StubSageMaker) DescribeHyperParameterTuningJob(_ context.Context, params *sagemaker.DescribeHyperParameterTuningJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeHyperParameterTuningJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DescribeHyperParameterTuningJob")

	status := types.HyperParameterTuningJobStatusCompleted
	if n := len(s.TuningStatuses); n > 0 {
		i := s.TuningDescribes
		if i >= n {
			i = n - 1
		}
		status = s.TuningStatuses[i]
	}
	s.TuningDescribes++

	out := &sagemaker.DescribeHyperParameterTuningJobOutput{
		HyperParameterTuningJobName:   params.HyperParameterTuningJobName,
		HyperParameterTuningJobStatus: status,
	}
	if s.FailureReason != "" {
		out.FailureReason = aws.String(s.FailureReason)
	}
	if status == types.HyperParameterTuningJobStatusCompleted {
		out.BestTrainingJob = s.BestJob
	}
	return out, nil
}

func (s *StubSageMaker) ListTrainingJobsForHyperParameterTuningJob(_ context.Context, params *sagemaker.ListTrainingJobsForHyperParameterTuningJobInput, _ ...func(*sagemaker.Options)) (*sagemaker.ListTrainingJobsForHyperParameterTuningJobOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListTrainingJobsForHyperParameterTuningJob")

	start := 0
	if params.NextToken != nil {
		n, err := strconv.Atoi(*params.NextToken)
		if err != nil {
			return nil, fmt.Errorf("bad token %q", *params.NextToken)
		}
		start = n
	}
	size := s.PageSize
	if size <= 0 {
		size = len(s.Trials)
	}
	end := min(start+size, len(s.Trials))

	out := &sagemaker.ListTrainingJobsForHyperParameterTuningJobOutput{
		TrainingJobSummaries: s.Trials[start:end],
	}
	if end < len(s.Trials) {
		out.NextToken = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (s *StubSageMaker) CreateModel(_ context.Context, params *sagemaker.CreateModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateModel")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.Models = append(s.Models, params)
	return &sagemaker.CreateModelOutput{
		ModelArn: aws.String(stubAccount + ":model/" + aws.ToString(params.ModelName)),
	}, nil
}

func (s *StubSageMaker) CreateEndpointConfig(_ context.Context, params *sagemaker.CreateEndpointConfigInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateEndpointConfig")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.EndpointConfigs = append(s.EndpointConfigs, params)
	return &sagemaker.CreateEndpointConfigOutput{
		EndpointConfigArn: aws.String(stubAccount + ":endpoint-config/" + aws.ToString(params.EndpointConfigName)),
	}, nil
}

func (s *StubSageMaker) CreateEndpoint(_ context.Context, params *sagemaker.CreateEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateEndpoint")
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	s.Endpoints = append(s.Endpoints, params)
	return &sagemaker.CreateEndpointOutput{
		EndpointArn: aws.String(stubAccount + ":endpoint/" + aws.ToString(params.EndpointName)),
	}, nil
}

func (s *StubSageMaker) DescribeEndpoint(_ context.Context, params *sagemaker.DescribeEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DescribeEndpoint")

	name := aws.ToString(params.EndpointName)
	status := s.EndpointStatus
	if status == "" {
		status = types.EndpointStatusInService
	}
	configName := name
	for _, ep := range s.Endpoints {
		if aws.ToString(ep.EndpointName) == name {
			configName = aws.ToString(ep.EndpointConfigName)
		}
	}
	out := &sagemaker.DescribeEndpointOutput{
		EndpointName:       aws.String(name),
		EndpointArn:        aws.String(stubAccount + ":endpoint/" + name),
		EndpointConfigName: aws.String(configName),
		EndpointStatus:     status,
		CreationTime:       aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		LastModifiedTime:   aws.Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	if s.FailureReason != "" {
		out.FailureReason = aws.String(s.FailureReason)
	}
	return out, nil
}

func (s *StubSageMaker) DescribeEndpointConfig(_ context.Context, params *sagemaker.DescribeEndpointConfigInput, _ ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointConfigOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DescribeEndpointConfig")

	name := aws.ToString(params.EndpointConfigName)
	for _, cfg := range s.EndpointConfigs {
		if aws.ToString(cfg.EndpointConfigName) == name {
			return &sagemaker.DescribeEndpointConfigOutput{
				EndpointConfigName: cfg.EndpointConfigName,
				ProductionVariants: cfg.ProductionVariants,
			}, nil
		}
	}
	return nil, fmt.Errorf("ValidationException: Could not find endpoint configuration %q", name)
}

func (s *StubSageMaker) DeleteEndpoint(_ context.Context, params *sagemaker.DeleteEndpointInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteEndpoint")
	s.DeletedEndpoints = append(s.DeletedEndpoints, aws.ToString(params.EndpointName))
	return &sagemaker.DeleteEndpointOutput{}, nil
}

func (s *StubSageMaker) DeleteEndpointConfig(_ context.Context, params *sagemaker.DeleteEndpointConfigInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteEndpointConfig")
	s.DeletedConfigs = append(s.DeletedConfigs, aws.ToString(params.EndpointConfigName))
	return &sagemaker.DeleteEndpointConfigOutput{}, nil
}

func (s *StubSageMaker) DeleteModel(_ context.Context, params *sagemaker.DeleteModelInput, _ ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteModel")
	s.DeletedModels = append(s.DeletedModels, aws.ToString(params.ModelName))
	return &sagemaker.DeleteModelOutput{}, nil
}

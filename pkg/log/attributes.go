// Package log defines standard attribute keys for pipeline operations.
//
// Keys follow a hierarchical naming convention ("data.samples", "job.name")
// so log lines from different steps can be filtered the same way.

package log

// Operation context.
const (
	// ComponentKey identifies which package is logging.
	// Examples: "preprocessing", "training", "tuning", "deployment", "inference"
	ComponentKey = "ml.component"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	// SamplesKey is the number of rows processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// InputRowsKey and OutputRowsKey describe a row-filtering step.
	InputRowsKey  = "data.input_rows"
	OutputRowsKey = "data.output_rows"

	// DroppedRowsKey is the number of rows removed for missing values.
	DroppedRowsKey = "data.dropped_rows"

	// InvalidCodesKey is the number of rows removed for unparsable category codes.
	InvalidCodesKey = "data.invalid_codes"

	// PositiveRateKey is the fraction of rows whose label is 1.
	PositiveRateKey = "data.positive_rate"

	// PathKey is a local file path.
	PathKey = "data.path"

	// URIKey is a remote object location such as s3://bucket/key.
	URIKey = "data.uri"
)

// Remote resources.
const (
	// JobNameKey is a SageMaker training or tuning job name.
	JobNameKey = "job.name"

	// JobStatusKey is the last observed status of a remote job.
	JobStatusKey = "job.status"

	// EndpointNameKey is a SageMaker endpoint name.
	EndpointNameKey = "endpoint.name"

	// ImageKey is a container image URI.
	ImageKey = "infra.image"

	// InstanceTypeKey is the compute instance type, e.g. "ml.m5.xlarge".
	InstanceTypeKey = "infra.instance_type"

	// RegionKey is the AWS region of the session.
	RegionKey = "infra.region"
)

// Metrics and configuration.
const (
	// MetricNameKey and MetricValueKey describe an objective metric.
	MetricNameKey  = "metrics.name"
	MetricValueKey = "metrics.value"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// HyperParamsKey contains hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// IterationKey is the current boosting round.
	IterationKey = "model.iteration"

	// BestIterationKey is the round kept by early stopping.
	BestIterationKey = "model.best_iteration"
)

// Standard attribute values.
const (
	OperationPreprocess = "preprocess"
	OperationSplit      = "split"
	OperationFit        = "fit"
	OperationTune       = "tune"
	OperationDeploy     = "deploy"
	OperationUndeploy   = "undeploy"
	OperationInvoke     = "invoke"

	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseInference     = "inference"
)

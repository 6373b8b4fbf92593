// Package log defines standard attribute keys for estimation and simulation
// operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so records from the glm and montecarlo packages can be
// filtered together.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator or sampler.
	// Examples: "PoissonRegressor", "MonteCarloSampler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "lln", "clt"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// MethodKey names the optimizer method, e.g. "BFGS".
	MethodKey = "optimize.method"

	// StatusKey carries the optimizer termination status.
	StatusKey = "optimize.status"
)

// Data Shape
const (
	// SamplesKey indicates the number of observations (rows).
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns of the design matrix.
	FeaturesKey = "data.features"

	// SampleSizeKey is the per-arm sample size of a simulated experiment.
	SampleSizeKey = "sim.sample_size"

	// RepetitionsKey is the number of repeated experiments per sample size.
	RepetitionsKey = "sim.repetitions"
)

// Performance and Progress
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the objective value (negative log-likelihood).
	LossKey = "metrics.loss"

	// GradNormKey records the infinity norm of the gradient.
	GradNormKey = "metrics.grad_norm"

	// IterationKey records the current major iteration of an optimizer.
	IterationKey = "training.iteration"

	// EvaluationKey records the objective evaluation counter.
	EvaluationKey = "training.evaluation"

	// ConvergedKey reports whether a fit met its stopping tolerance.
	ConvergedKey = "training.converged"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving the issue.
	SuggestionKey = "error.suggestion"
)

// Configuration
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// ProbabilityControlKey and ProbabilityTreatmentKey record the simulated
	// success probabilities of the two arms.
	ProbabilityControlKey   = "config.p_control"
	ProbabilityTreatmentKey = "config.p_treatment"
)

// Standard attribute values.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationScore   = "score"
	OperationLLN     = "lln"
	OperationCLT     = "clt"

	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInsufficientData  = "INSUFFICIENT_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
	ErrorNumericOverflow   = "NUMERIC_OVERFLOW"
)

// Package log defines standard attribute keys for kernel regression operations.
//
// Using these keys consistently across the estimators, the bandwidth selector,
// the heteroscedasticity battery and the confidence-band builder keeps the
// emitted records filterable: every fit reports the same "data.samples" key,
// every selection the same "bandwidth.values" key.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "NadarayaWatson", "LocalPolynomial"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "select_bandwidth", "test", "confidence_interval"
	OperationKey = "op"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "smooth", "bandwidth", "hetero", "confband"
	ComponentKey = "component"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of input dimensions (columns).
	FeaturesKey = "data.features"

	// QueriesKey indicates the number of query points in a prediction batch.
	QueriesKey = "data.queries"
)

// Smoothing parameters.
const (
	// KernelKey records the kernel variant in use.
	KernelKey = "smoothing.kernel"

	// BandwidthKey records the selected or supplied bandwidth vector.
	BandwidthKey = "smoothing.bandwidth"

	// OrderKey records the local polynomial order.
	OrderKey = "smoothing.order"

	// EffectiveDFKey records the trace of the smoother matrix after a fit.
	EffectiveDFKey = "smoothing.effective_df"
)

// Selection and resampling.
const (
	// GridSizeKey records the number of candidate bandwidths evaluated.
	GridSizeKey = "cv.grid_size"

	// CVScoreKey records the winning cross-validation score.
	CVScoreKey = "cv.score"

	// IterationKey records the coordinate-descent iteration.
	IterationKey = "cv.iteration"

	// PermutationsKey records the permutation count of a calibrated test.
	PermutationsKey = "test.permutations"

	// VariantKey records the heteroscedasticity test variant.
	VariantKey = "test.variant"

	// ResamplesKey records the number of wild-bootstrap resamples.
	ResamplesKey = "bootstrap.resamples"

	// SeedKey records the caller-supplied random seed.
	SeedKey = "bootstrap.seed"
)

// Timing.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

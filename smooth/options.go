package smooth

import (
	"github.com/YuminosukeSato/npreg/bandwidth"
	"github.com/YuminosukeSato/npreg/kernel"
	"github.com/YuminosukeSato/npreg/pkg/log"
)

// options holds the shared estimator configuration.
type options struct {
	kernel    kernel.Kind
	bw        *bandwidth.Bandwidth
	method    bandwidth.Method
	cvOptions *bandwidth.CVOptions
	ridge     float64
	logger    log.Logger
}

func defaultOptions() options {
	return options{
		kernel: kernel.Gaussian,
		method: bandwidth.MethodSilverman,
		ridge:  1e-8,
	}
}

// Option configures an estimator.
type Option func(*options)

// WithKernel sets the kernel variant (default: Gaussian).
func WithKernel(k kernel.Kind) Option {
	return func(o *options) {
		o.kernel = k
	}
}

// WithBandwidth sets an explicit bandwidth, skipping automatic selection.
func WithBandwidth(b *bandwidth.Bandwidth) Option {
	return func(o *options) {
		o.bw = b
	}
}

// WithBandwidthMethod sets the automatic selection method used when no
// explicit bandwidth is supplied (default: Silverman's rule of thumb).
func WithBandwidthMethod(m bandwidth.Method) Option {
	return func(o *options) {
		o.method = m
	}
}

// WithCVOptions passes cross-validation settings through to the selector.
func WithCVOptions(cv *bandwidth.CVOptions) Option {
	return func(o *options) {
		o.cvOptions = cv
	}
}

// WithRidge sets the regularization added to a near-singular local system
// before falling back to a lower polynomial order (default: 1e-8).
func WithRidge(eps float64) Option {
	return func(o *options) {
		o.ridge = eps
	}
}

// WithLogger sets a structured logger for fit and selection events.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

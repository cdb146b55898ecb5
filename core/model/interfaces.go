// Package model provides the capability interfaces shared by the kernel
// regression estimators. All computation is batch over in-memory matrices;
// there is no streaming or incremental surface.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Estimator is the interface for models that learn from a training sample.
type Estimator interface {
	// Fit trains the model on X (n×d inputs) and y (n×1 responses).
	Fit(X mat.Matrix, y mat.Matrix) error

	// IsFitted reports whether Fit completed successfully.
	IsFitted() bool
}

// Predictor is the interface for models that predict at arbitrary query points.
type Predictor interface {
	// Predict returns an n×1 matrix of predictions for the query rows of X.
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Regressor combines the interfaces every smoother in this module satisfies.
type Regressor interface {
	Estimator
	Predictor
	Scorer
}

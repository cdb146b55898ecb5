// Package npreg provides nonparametric kernel regression for Go,
// designed for data analysis services that need smoothing without a
// parametric model of the mean function.
//
// npreg offers a scikit-learn-like estimator API: construct, Fit on a
// design matrix, Predict at query points. On top of the estimators it
// ships bandwidth selection, fit diagnostics, a heteroscedasticity
// test battery with permutation calibration, and wild-bootstrap
// confidence bands.
//
// # Features
//
// - Nadaraya-Watson and local polynomial estimators with product kernels
// - Rule-of-thumb and cross-validated bandwidth selection, per-dimension
// - Effective-degrees-of-freedom diagnostics (GCV, AIC, BIC)
// - White, Breusch-Pagan, Goldfeld-Quandt and difference-based
// heteroscedasticity tests
// - Bias-corrected wild-bootstrap confidence bands
// - CPU-parallel fitting and resampling with deterministic seeding
//
// # Installation
//
// Install npreg using go get:
//
//	go get github.com/YuminosukeSato/npreg
//
// # Quick Start
//
// Here's a simple example of kernel regression:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/npreg/smooth"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    // Create training data
//	    X := mat.NewDense(5, 1, []float64{0, 0.25, 0.5, 0.75, 1})
//	    y := mat.NewDense(5, 1, []float64{0, 0.7, 1, 0.7, 0})
//
//	    // Create and train the smoother
//	    model := smooth.NewNadarayaWatson()
//	    if err := model.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Predict at new points
//	    query := mat.NewDense(2, 1, []float64{0.4, 0.6})
//	    predictions, err := model.Predict(query)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(predictions))
//	}
//
// # Package Organization
//
//   - kernel: kernel functions and product weights
//   - bandwidth: rule-of-thumb and cross-validated bandwidth selection
//   - smooth: Nadaraya-Watson and local polynomial estimators
//   - diagnostics: goodness-of-fit summaries from effective degrees of freedom
//   - hetero: heteroscedasticity tests with permutation calibration
//   - confband: wild-bootstrap confidence bands
//   - metrics: regression evaluation metrics
//   - dataset: seeded synthetic data generators for tests and experiments
package npreg

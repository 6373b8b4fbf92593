// Package scistat provides Poisson regression by maximum likelihood and Monte
// Carlo demonstrations of the law of large numbers and the central limit
// theorem, built on gonum.
//
// # Quick Start
//
// Fitting a Poisson regression on a design matrix:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/scistat/glm"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{
//	        1, 0,
//	        1, 0,
//	        1, 1,
//	        1, 1,
//	    })
//	    y := []float64{2, 3, 5, 7}
//
//	    res, err := glm.FitPoisson(X, y)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Summary([]string{"intercept", "treated"}))
//	}
//
// Simulating the difference between two Bernoulli arms:
//
//	means, err := montecarlo.RunLLN(0.018, 0.022, 10000, 42)
//	dists, err := montecarlo.RunCLT(0.018, 0.022, []int{50, 200, 500, 1000}, 1000, 42)
//
// # Packages
//
//   - glm: Poisson MLE (FitPoisson) and the PoissonRegressor estimator
//   - montecarlo: seeded LLN and CLT sampling
//   - metrics: MSE, RMSE, MAE, R² and Poisson deviance metrics
//   - preprocessing: design matrix construction and StandardScaler
//   - viz: PNG charts of simulation output
//   - core/model: estimator state, interfaces and serializable weights
//   - core/parallel: parallel processing utilities
//   - pkg/errors: error types, warnings and panic recovery
//   - pkg/log: Logger interface with zerolog and slog backends
//
// # Logging
//
// Library code logs through log.GetLogger(), which discards everything until
// a backend is installed:
//
//	log.SetupZerolog(os.Stderr, "info")
//
// Per-call loggers can be passed with glm.WithLogger and
// montecarlo.WithLogger.
package scistat

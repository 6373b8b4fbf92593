package glm

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

// Option is a functional option for FitPoisson and PoissonRegressor
type Option func(*config)

type config struct {
	maxIter      int
	gradTol      float64
	funcTol      float64
	decrementTol float64
	etaMin       float64
	etaMax       float64
	penalty      float64
	newMethod    func() optimize.Method
	overflowHook func(*errors.NumericOverflowError)
	logger       log.Logger
	featureNames []string
}

func defaultConfig() *config {
	return &config{
		maxIter:      1000,
		gradTol:      1e-6,
		funcTol:      1e-12,
		decrementTol: 1e-8,
		etaMin:       DefaultEtaMin,
		etaMax:       DefaultEtaMax,
		penalty:      DefaultPenalty,
		newMethod:    func() optimize.Method { return &optimize.BFGS{} },
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.maxIter <= 0 {
		return errors.NewInvalidParameterError("max_iter", "must be positive", c.maxIter)
	}
	if !(c.gradTol > 0) {
		return errors.NewInvalidParameterError("grad_tol", "must be positive", c.gradTol)
	}
	if !(c.etaMin < c.etaMax) || math.IsInf(c.etaMin, 0) || math.IsInf(c.etaMax, 0) {
		return errors.NewInvalidParameterError("eta_bounds", "must be finite with min < max", [2]float64{c.etaMin, c.etaMax})
	}
	if !errors.IsFinite(c.penalty) {
		return errors.NewInvalidParameterError("penalty", "must be finite", c.penalty)
	}
	if c.newMethod == nil {
		return errors.NewInvalidParameterError("method", "factory must not be nil", nil)
	}
	return nil
}

// methodName returns the optimizer type name without package prefix, e.g. "BFGS".
func (c *config) methodName() string {
	if c.newMethod == nil {
		return ""
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", c.newMethod()), "*optimize.")
}

func (c *config) params() map[string]interface{} {
	return map[string]interface{}{
		"max_iter":  c.maxIter,
		"grad_tol":  c.gradTol,
		"eta_min":   c.etaMin,
		"eta_max":   c.etaMax,
		"penalty":   c.penalty,
		"optimizer": c.methodName(),
	}
}

// WithMaxIter sets the major-iteration budget of the optimizer
func WithMaxIter(maxIter int) Option {
	return func(c *config) {
		c.maxIter = maxIter
	}
}

// WithGradTol sets the gradient infinity-norm threshold for convergence
func WithGradTol(tol float64) Option {
	return func(c *config) {
		c.gradTol = tol
	}
}

// WithEtaBounds sets the interval the linear predictor is clipped to before
// exponentiation.
func WithEtaBounds(min, max float64) Option {
	return func(c *config) {
		c.etaMin = min
		c.etaMax = max
	}
}

// WithPenalty sets the finite value reported to the optimizer when the
// objective is NaN or Inf.
func WithPenalty(penalty float64) Option {
	return func(c *config) {
		c.penalty = penalty
	}
}

// WithMethod sets a factory for the gonum optimizer method. A fresh method
// is built for every fit, so the factory must not return a shared instance.
//
//	glm.WithMethod(func() optimize.Method { return &optimize.LBFGS{} })
func WithMethod(newMethod func() optimize.Method) Option {
	return func(c *config) {
		c.newMethod = newMethod
	}
}

// WithOverflowHook registers a callback for every objective evaluation that
// was replaced by the penalty. The hook must not panic.
func WithOverflowHook(hook func(*errors.NumericOverflowError)) Option {
	return func(c *config) {
		c.overflowHook = hook
	}
}

// WithLogger sets the logger. Defaults to log.GetLogger() at fit time.
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFeatureNames names the design-matrix columns for summaries and
// exported weights.
func WithFeatureNames(names ...string) Option {
	return func(c *config) {
		c.featureNames = append([]string(nil), names...)
	}
}

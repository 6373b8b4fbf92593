// Package montecarlo simulates the difference between two Bernoulli arms to
// demonstrate the law of large numbers and the central limit theorem.
//
// Every draw comes from a PCG generator derived from an explicit seed, so
// results are reproducible and independent of the global generator.
package montecarlo

import (
	"context"
	"iter"
	"maps"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/scistat/core/parallel"
	"github.com/YuminosukeSato/scistat/pkg/errors"
	"github.com/YuminosukeSato/scistat/pkg/log"
)

// DefaultParallelThreshold is the repetition count above which CLT
// repetitions are spread across CPU cores.
const DefaultParallelThreshold = 64

// lln stream id for the second PCG seed word
const llnStream = 0x4c4c4e

// Sampler draws paired Bernoulli(pControl) and Bernoulli(pTreatment) samples.
// It is immutable after construction and safe for concurrent use.
type Sampler struct {
	pControl   float64
	pTreatment float64

	seed              uint64
	parallelThreshold int
	logger            log.Logger
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithSeed sets the seed every stream is derived from. Defaults to 0.
func WithSeed(seed uint64) Option {
	return func(s *Sampler) {
		s.seed = seed
	}
}

// WithLogger sets the logger. Defaults to log.GetLogger().
func WithLogger(logger log.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger
	}
}

// WithParallelThreshold sets the repetition count above which CLT
// repetitions run in parallel. Zero always parallelizes.
func WithParallelThreshold(threshold int) Option {
	return func(s *Sampler) {
		s.parallelThreshold = threshold
	}
}

// NewSampler validates the probabilities and returns a Sampler.
func NewSampler(pControl, pTreatment float64, opts ...Option) (*Sampler, error) {
	if err := checkProbability("p_control", pControl); err != nil {
		return nil, err
	}
	if err := checkProbability("p_treatment", pTreatment); err != nil {
		return nil, err
	}

	s := &Sampler{
		pControl:          pControl,
		pTreatment:        pTreatment,
		parallelThreshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parallelThreshold < 0 {
		return nil, errors.NewInvalidParameterError("parallel_threshold", "must be non-negative", s.parallelThreshold)
	}
	if s.logger == nil {
		s.logger = log.GetLogger()
	}
	s.logger = s.logger.With(
		log.ModelNameKey, "MonteCarloSampler",
		log.ProbabilityControlKey, pControl,
		log.ProbabilityTreatmentKey, pTreatment,
		log.RandomSeedKey, s.seed,
	)
	return s, nil
}

func checkProbability(name string, p float64) error {
	// NaN fails both comparisons
	if !(p > 0 && p < 1) {
		return errors.NewInvalidParameterError(name, "must be in the open interval (0, 1)", p)
	}
	return nil
}

// Difference returns pTreatment - pControl, the value both demonstrations
// converge to.
func (s *Sampler) Difference() float64 {
	return s.pTreatment - s.pControl
}

// LLNSeq returns a lazy sequence of n running means of treatment - control.
// The i-th pair (0-based) yields the mean over the first i+1 pairs. Each
// range over the sequence restarts from the seed and yields the same values.
func (s *Sampler) LLNSeq(n int) (iter.Seq2[int, float64], error) {
	if n <= 0 {
		return nil, errors.NewInvalidParameterError("n", "must be positive", n)
	}
	return func(yield func(int, float64) bool) {
		src := rand.NewPCG(s.seed, llnStream)
		control := distuv.Bernoulli{P: s.pControl, Src: src}
		treatment := distuv.Bernoulli{P: s.pTreatment, Src: src}

		var sum float64
		for i := 0; i < n; i++ {
			sum += treatment.Rand() - control.Rand()
			if !yield(i, sum/float64(i+1)) {
				return
			}
		}
	}, nil
}

// LLN collects LLNSeq into a slice.
func (s *Sampler) LLN(n int) ([]float64, error) {
	seq, err := s.LLNSeq(n)
	if err != nil {
		return nil, err
	}

	means := make([]float64, 0, n)
	for _, m := range seq {
		means = append(means, m)
	}
	s.logger.Debug("lln simulation finished",
		log.OperationKey, log.OperationLLN,
		log.SampleSizeKey, n,
	)
	return means, nil
}

// CLT returns, for each sample size, reps independent values of
// mean(treatment) - mean(control) over that many draws per arm.
//
// Repetition r of size s draws from its own stream keyed by (seed, s, r), so
// results do not depend on the order of sizes, on other sizes in the list,
// or on whether repetitions ran in parallel.
func (s *Sampler) CLT(sizes []int, reps int) (map[int][]float64, error) {
	if len(sizes) == 0 {
		return nil, errors.NewInvalidParameterError("sample_sizes", "must not be empty", sizes)
	}
	for _, size := range sizes {
		if size <= 0 {
			return nil, errors.NewInvalidParameterError("sample_sizes", "must all be positive", sizes)
		}
	}
	if reps <= 0 {
		return nil, errors.NewInvalidParameterError("reps", "must be positive", reps)
	}

	out := make(map[int][]float64, len(sizes))
	for _, size := range sizes {
		if _, done := out[size]; done {
			continue
		}
		out[size] = s.repeat(size, reps)
		if s.logger.Enabled(context.Background(), log.LevelDebug) {
			s.logger.Debug("clt sample size finished",
				log.OperationKey, log.OperationCLT,
				log.SampleSizeKey, size,
				log.RepetitionsKey, reps,
			)
		}
	}
	s.logger.Info("clt simulation finished",
		log.OperationKey, log.OperationCLT,
		log.RepetitionsKey, reps,
		"sample_sizes", slices.Sorted(maps.Keys(out)),
	)
	return out, nil
}

func (s *Sampler) repeat(size, reps int) []float64 {
	diffs := make([]float64, reps)
	parallel.ParallelizeWithThreshold(reps, s.parallelThreshold, func(start, end int) {
		for r := start; r < end; r++ {
			diffs[r] = s.diffOfMeans(size, r)
		}
	})
	return diffs
}

func (s *Sampler) diffOfMeans(size, rep int) float64 {
	src := rand.NewPCG(s.seed, streamID(size, rep))
	control := distuv.Bernoulli{P: s.pControl, Src: src}
	treatment := distuv.Bernoulli{P: s.pTreatment, Src: src}

	var c, t float64
	for i := 0; i < size; i++ {
		c += control.Rand()
	}
	for i := 0; i < size; i++ {
		t += treatment.Rand()
	}
	return (t - c) / float64(size)
}

// streamID mixes (size, rep) into the second PCG seed word with splitmix64.
func streamID(size, rep int) uint64 {
	z := uint64(size)<<32 ^ uint64(rep) + 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// RunLLN draws n pairs with the given seed and returns the running means of
// treatment - control.
func RunLLN(pControl, pTreatment float64, n int, seed uint64) ([]float64, error) {
	s, err := NewSampler(pControl, pTreatment, WithSeed(seed))
	if err != nil {
		return nil, err
	}
	return s.LLN(n)
}

// LLNSeq is the lazy form of RunLLN.
func LLNSeq(pControl, pTreatment float64, n int, seed uint64) (iter.Seq2[int, float64], error) {
	s, err := NewSampler(pControl, pTreatment, WithSeed(seed))
	if err != nil {
		return nil, err
	}
	return s.LLNSeq(n)
}

// RunCLT returns reps difference-of-means values for each sample size.
func RunCLT(pControl, pTreatment float64, sampleSizes []int, reps int, seed uint64) (map[int][]float64, error) {
	s, err := NewSampler(pControl, pTreatment, WithSeed(seed))
	if err != nil {
		return nil, err
	}
	return s.CLT(sampleSizes, reps)
}

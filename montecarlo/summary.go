package montecarlo

import (
	"maps"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// CLTSummary compares the simulated spread of the difference in means for
// one sample size with the normal approximation.
type CLTSummary struct {
	Size int
	Reps int

	Mean   float64
	StdDev float64

	// TheoreticalStdDev is sqrt(pC(1-pC)/n + pT(1-pT)/n).
	TheoreticalStdDev float64
}

// TheoreticalStdDev returns the standard deviation of mean(treatment) -
// mean(control) for n independent draws per arm.
func TheoreticalStdDev(pControl, pTreatment float64, n int) float64 {
	return math.Sqrt(pControl*(1-pControl)/float64(n) + pTreatment*(1-pTreatment)/float64(n))
}

// Summarize summarizes dists against this sampler's probabilities.
func (s *Sampler) Summarize(dists map[int][]float64) []CLTSummary {
	return Summarize(s.pControl, s.pTreatment, dists)
}

// Summarize returns one CLTSummary per sample size in dists, ordered by size.
// Sizes with fewer than two values report a NaN StdDev.
func Summarize(pControl, pTreatment float64, dists map[int][]float64) []CLTSummary {
	out := make([]CLTSummary, 0, len(dists))
	for _, size := range slices.Sorted(maps.Keys(dists)) {
		values := dists[size]
		sum := CLTSummary{
			Size:              size,
			Reps:              len(values),
			Mean:              math.NaN(),
			StdDev:            math.NaN(),
			TheoreticalStdDev: TheoreticalStdDev(pControl, pTreatment, size),
		}
		switch {
		case len(values) >= 2:
			sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
		case len(values) == 1:
			sum.Mean = values[0]
		}
		out = append(out, sum)
	}
	return out
}

// Package statistics holds the significance machinery the evaluation
// harness uses to compare selection policies: bootstrap confidence
// intervals over per-instance regret and a Wilcoxon signed-rank test
// over paired regret series.
package statistics

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// ConfidenceInterval is a percentile bootstrap interval over a metric
// series (typically per-instance regret).
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// BootstrapCI computes a percentile bootstrap confidence interval over
// the given values. confidenceLevel should be in (0, 1), e.g. 0.95. A
// negative seed uses a non-deterministic source. Fewer than 2 data
// points yield a degenerate interval around the mean.
func BootstrapCI(values []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(values)
	if n < 2 {
		m := 0.0
		if n == 1 {
			m = values[0]
		}
		return ConfidenceInterval{
			Lower:           m,
			Upper:           m,
			Mean:            m,
			ConfidenceLevel: confidenceLevel,
		}
	}

	var rng *rand.Rand
	if seed >= 0 {
		rng = rand.New(rand.NewSource(seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	iters := DefaultBootstrapIterations
	bootMeans := make([]float64, iters)
	sample := make([]float64, n)
	for i := 0; i < iters; i++ {
		for j := 0; j < n; j++ {
			sample[j] = values[rng.Intn(n)]
		}
		bootMeans[i] = stat.Mean(sample, nil)
	}
	sort.Float64s(bootMeans)

	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return ConfidenceInterval{
		Lower:           bootMeans[loIdx],
		Upper:           bootMeans[hiIdx],
		Mean:            stat.Mean(values, nil),
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

// IsSignificant reports whether the interval excludes zero.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

// PairedDifference bootstraps the per-instance difference a[i] − b[i]
// between two policies scored on the same instances. A negative interval
// means a has lower regret than b at the given confidence.
type PairedDifference struct {
	Interval    ConfidenceInterval `json:"interval"`
	Significant bool               `json:"significant"`
	N           int                `json:"n"`
}

// ComparePaired computes the bootstrap interval over paired differences.
// The two series must be aligned and of equal length; unequal lengths
// compare only the common prefix.
func ComparePaired(a, b []float64, confidenceLevel float64, seed int64) PairedDifference {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	diffs := make([]float64, n)
	for i := 0; i < n; i++ {
		diffs[i] = a[i] - b[i]
	}
	ci := BootstrapCI(diffs, confidenceLevel, seed)
	return PairedDifference{Interval: ci, Significant: IsSignificant(ci), N: n}
}

// WilcoxonSignedRank runs the large-sample Wilcoxon signed-rank test on
// paired samples and returns the two-sided p-value via the normal
// approximation (adequate for n >= 10, the usual fold-count regime).
// Zero differences drop out per the standard procedure; if fewer than 2
// non-zero differences remain the test is inconclusive and p = 1.
func WilcoxonSignedRank(a, b []float64) (w float64, p float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	type rankedDiff struct {
		abs  float64
		sign float64
	}
	diffs := make([]rankedDiff, 0, n)
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		if d == 0 {
			continue
		}
		diffs = append(diffs, rankedDiff{abs: math.Abs(d), sign: math.Copysign(1, d)})
	}
	if len(diffs) < 2 {
		return 0, 1
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].abs < diffs[j].abs })

	// Average ranks over ties.
	ranks := make([]float64, len(diffs))
	for i := 0; i < len(diffs); {
		j := i
		for j < len(diffs) && diffs[j].abs == diffs[i].abs {
			j++
		}
		avg := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	wPlus := 0.0
	for i, d := range diffs {
		if d.sign > 0 {
			wPlus += ranks[i]
		}
	}

	m := float64(len(diffs))
	mean := m * (m + 1) / 4.0
	variance := m * (m + 1) * (2*m + 1) / 24.0
	z := (wPlus - mean) / math.Sqrt(variance)

	// Two-sided p from the standard normal.
	p = math.Erfc(math.Abs(z) / math.Sqrt2)
	if p > 1 {
		p = 1
	}
	return wPlus, p
}

// Package cluster partitions the feature space with Lloyd's algorithm so
// that ratings and tournaments can be scoped to regions of similar
// instances.
package cluster

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// ErrNotFitted is returned by Assign when the model is unfitted and
// lazy fitting is disabled.
var ErrNotFitted = errors.New("cluster: model not fitted")

// Config controls a KMeans model.
type Config struct {
	// K is the number of clusters.
	K int

	// MaxIterations caps the assign/recompute loop.
	MaxIterations int

	// Seed makes centroid initialization (and any lazy fit)
	// reproducible.
	Seed int64

	// LazyFit makes Assign on an unfitted model fit deterministically on
	// K*2 synthetic random vectors instead of failing. Selection stays
	// always-callable at the cost of clustering on noise; disable it to
	// get ErrNotFitted instead.
	LazyFit bool
}

// DefaultConfig matches the behavior the selector expects out of the box.
func DefaultConfig(k int) Config {
	return Config{K: k, MaxIterations: 20, Seed: 1, LazyFit: true}
}

// KMeans is a fitted-or-not centroid model. Not safe for concurrent
// mutation; give each worker its own instance.
type KMeans struct {
	cfg       Config
	centroids [][]float64
	fitted    bool
}

// New builds an unfitted model from cfg. K is clamped to at least 1 and
// MaxIterations to at least 1.
func New(cfg Config) *KMeans {
	if cfg.K < 1 {
		cfg.K = 1
	}
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 20
	}
	return &KMeans{cfg: cfg}
}

// K returns the configured cluster count.
func (m *KMeans) K() int { return m.cfg.K }

// Fitted reports whether the model has centroids.
func (m *KMeans) Fitted() bool { return m.fitted }

// Centroids exposes the fitted centroids for persistence.
func (m *KMeans) Centroids() [][]float64 { return m.centroids }

// Restore reinstates persisted centroids, marking the model fitted.
func (m *KMeans) Restore(centroids [][]float64) error {
	if len(centroids) == 0 {
		return fmt.Errorf("cluster: cannot restore zero centroids")
	}
	width := len(centroids[0])
	for i, c := range centroids {
		if len(c) != width {
			return fmt.Errorf("cluster: centroid %d has %d dims, expected %d", i, len(c), width)
		}
	}
	m.centroids = make([][]float64, len(centroids))
	for i, c := range centroids {
		m.centroids[i] = append([]float64(nil), c...)
	}
	m.cfg.K = len(centroids)
	m.fitted = true
	return nil
}

// Fit runs Lloyd's algorithm: seeded centroid initialization from the
// data, then alternating nearest-centroid assignment and mean
// recomputation until assignments stop changing or the iteration cap
// hits. Empty clusters are re-seeded from the point farthest from its
// centroid.
func (m *KMeans) Fit(vectors [][]float64) error {
	if len(vectors) == 0 {
		return fmt.Errorf("cluster: cannot fit on empty data")
	}
	width := len(vectors[0])
	for i, v := range vectors {
		if len(v) != width {
			return fmt.Errorf("cluster: vector %d has %d dims, expected %d", i, len(v), width)
		}
	}

	k := m.cfg.K
	if k > len(vectors) {
		k = len(vectors)
	}

	rng := rand.New(rand.NewSource(m.cfg.Seed))
	centroids := make([][]float64, k)
	for i, idx := range rng.Perm(len(vectors))[:k] {
		centroids[i] = append([]float64(nil), vectors[idx]...)
	}

	assignments := make([]int, len(vectors))
	for i := range assignments {
		assignments[i] = -1
	}

	for iter := 0; iter < m.cfg.MaxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best := nearest(v, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, width)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			floats.Add(sums[c], v)
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed from the point farthest from its centroid.
				centroids[c] = append([]float64(nil), vectors[farthest(vectors, assignments, centroids)]...)
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}

	m.centroids = centroids
	m.cfg.K = k
	m.fitted = true
	return nil
}

// Assign returns the index of the nearest centroid in [0, K). On an
// unfitted model it either lazy-fits on synthetic data (LazyFit) or
// returns ErrNotFitted.
func (m *KMeans) Assign(vec []float64) (int, error) {
	if !m.fitted {
		if !m.cfg.LazyFit {
			return 0, ErrNotFitted
		}
		if err := m.lazyFit(len(vec)); err != nil {
			return 0, err
		}
	}
	if len(vec) != len(m.centroids[0]) {
		return 0, fmt.Errorf("cluster: vector has %d dims, model has %d", len(vec), len(m.centroids[0]))
	}
	return nearest(vec, m.centroids), nil
}

// lazyFit fits on K*2 seeded random vectors of the queried width so a
// cluster index can always be produced. The resulting partition is
// arbitrary but deterministic.
func (m *KMeans) lazyFit(width int) error {
	if width == 0 {
		return fmt.Errorf("cluster: cannot lazy-fit on zero-width vector")
	}
	rng := rand.New(rand.NewSource(m.cfg.Seed))
	synthetic := make([][]float64, m.cfg.K*2)
	for i := range synthetic {
		v := make([]float64, width)
		for j := range v {
			v[j] = rng.NormFloat64()
		}
		synthetic[i] = v
	}
	return m.Fit(synthetic)
}

func nearest(vec []float64, centroids [][]float64) int {
	best, bestDist := 0, floats.Distance(vec, centroids[0], 2)
	for c := 1; c < len(centroids); c++ {
		if d := floats.Distance(vec, centroids[c], 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthest(vectors [][]float64, assignments []int, centroids [][]float64) int {
	worst, worstDist := 0, -1.0
	for i, v := range vectors {
		d := floats.Distance(v, centroids[assignments[i]], 2)
		if d > worstDist {
			worst, worstDist = i, d
		}
	}
	return worst
}

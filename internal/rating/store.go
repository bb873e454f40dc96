// Package rating keeps the dual Elo tables the selector and tournament
// engine share: one global rating per solver and one rating per
// (cluster, solver) pair, plus the per-cluster trial counters feeding
// the UCB exploration term.
package rating

import "math"

const (
	// DefaultRating is the initial condition for any solver, in any
	// cluster. Absence from a table is never an error.
	DefaultRating = 1500.0

	// DefaultKFactor is the standard Elo sensitivity constant.
	DefaultKFactor = 32.0

	// normalizationScale maps rating deltas onto the UCB exploitation
	// scale: one 400-point rating class is one unit.
	normalizationScale = 400.0
)

type clusterKey struct {
	cluster int
	solver  string
}

// Store holds both rating namespaces and the trial counters. Ratings are
// created at first reference with DefaultRating and only ever updated in
// place. Not safe for concurrent mutation; one Store per model instance.
type Store struct {
	kFactor float64
	global  map[string]float64
	cluster map[clusterKey]float64
	trials  map[clusterKey]int
	totals  map[int]int
}

// NewStore builds an empty store. A kFactor of 0 selects
// DefaultKFactor.
func NewStore(kFactor float64) *Store {
	if kFactor == 0 {
		kFactor = DefaultKFactor
	}
	return &Store{
		kFactor: kFactor,
		global:  make(map[string]float64),
		cluster: make(map[clusterKey]float64),
		trials:  make(map[clusterKey]int),
		totals:  make(map[int]int),
	}
}

// KFactor returns the configured update constant.
func (s *Store) KFactor() float64 { return s.kFactor }

// Global returns a solver's global rating, DefaultRating when unseen.
func (s *Store) Global(solver string) float64 {
	if r, ok := s.global[solver]; ok {
		return r
	}
	return DefaultRating
}

// Cluster returns a solver's rating inside one cluster, DefaultRating
// when the pair has never been observed there.
func (s *Store) Cluster(cluster int, solver string) float64 {
	if r, ok := s.cluster[clusterKey{cluster, solver}]; ok {
		return r
	}
	return DefaultRating
}

// Normalized maps a cluster rating onto the UCB exploitation scale:
// (R - 1500) / 400.
func (s *Store) Normalized(cluster int, solver string) float64 {
	return (s.Cluster(cluster, solver) - DefaultRating) / normalizationScale
}

// ExpectedScore is the standard Elo win expectation of a against b.
func ExpectedScore(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (ratingB-ratingA)/normalizationScale))
}

// UpdatePair applies one symmetric Elo update to both the cluster-scoped
// and the global tables. score is A's result: 1 for a win, 0 for a loss,
// 0.5 for a tie. The update is zero-sum within each namespace; no bounds
// are applied.
func (s *Store) UpdatePair(cluster int, solverA, solverB string, score float64) {
	keyA := clusterKey{cluster, solverA}
	keyB := clusterKey{cluster, solverB}

	ra, rb := s.Cluster(cluster, solverA), s.Cluster(cluster, solverB)
	expected := ExpectedScore(ra, rb)
	s.cluster[keyA] = ra + s.kFactor*(score-expected)
	s.cluster[keyB] = rb + s.kFactor*((1-score)-(1-expected))

	ga, gb := s.Global(solverA), s.Global(solverB)
	expected = ExpectedScore(ga, gb)
	s.global[solverA] = ga + s.kFactor*(score-expected)
	s.global[solverB] = gb + s.kFactor*((1-score)-(1-expected))
}

// Trials returns how often a solver has been selected in a cluster.
func (s *Store) Trials(cluster int, solver string) int {
	return s.trials[clusterKey{cluster, solver}]
}

// TotalTrials returns the selection count across all solvers in a
// cluster.
func (s *Store) TotalTrials(cluster int) int {
	return s.totals[cluster]
}

// RecordTrial increments a solver's trial counter and the cluster total.
// Counters never reset except by building a fresh Store.
func (s *Store) RecordTrial(cluster int, solver string) {
	s.trials[clusterKey{cluster, solver}]++
	s.totals[cluster]++
}

// Snapshot is the persistable form of a Store.
type Snapshot struct {
	KFactor float64                    `json:"k_factor"`
	Global  map[string]float64         `json:"global"`
	Cluster map[int]map[string]float64 `json:"cluster"`
	Trials  map[int]map[string]int     `json:"trials"`
}

// Snapshot exports the store's full state.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		KFactor: s.kFactor,
		Global:  make(map[string]float64, len(s.global)),
		Cluster: make(map[int]map[string]float64),
		Trials:  make(map[int]map[string]int),
	}
	for solver, r := range s.global {
		snap.Global[solver] = r
	}
	for key, r := range s.cluster {
		if snap.Cluster[key.cluster] == nil {
			snap.Cluster[key.cluster] = make(map[string]float64)
		}
		snap.Cluster[key.cluster][key.solver] = r
	}
	for key, n := range s.trials {
		if snap.Trials[key.cluster] == nil {
			snap.Trials[key.cluster] = make(map[string]int)
		}
		snap.Trials[key.cluster][key.solver] = n
	}
	return snap
}

// Restore rebuilds a store from a snapshot.
func Restore(snap Snapshot) *Store {
	s := NewStore(snap.KFactor)
	for solver, r := range snap.Global {
		s.global[solver] = r
	}
	for cluster, solvers := range snap.Cluster {
		for solver, r := range solvers {
			s.cluster[clusterKey{cluster, solver}] = r
		}
	}
	for cluster, solvers := range snap.Trials {
		for solver, n := range solvers {
			s.trials[clusterKey{cluster, solver}] = n
			s.totals[cluster] += n
		}
	}
	return s
}

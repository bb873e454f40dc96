// Package selection serves solver choices: it assigns an instance to a
// cluster and scores every solver there with an upper confidence bound
// over its Elo rating.
package selection

import (
	"fmt"
	"math"
	"sort"

	"github.com/librexlabs/librex/internal/cluster"
	"github.com/librexlabs/librex/internal/rating"
	"github.com/librexlabs/librex/internal/scenario"
)

// DefaultExploration is the UCB exploration constant λ.
const DefaultExploration = 1.0

// Selector scores solvers as
//
//	UCB = (R_cluster − 1500)/400 + λ·sqrt(log(N+1)/(n+1))
//
// where N is the cluster's total selection count and n the solver's own.
// Ties break by solver registration order so selection is reproducible.
type Selector struct {
	store     *rating.Store
	clusterer *cluster.KMeans
	solvers   []string
	lambda    float64
}

// NewSelector builds a selector over the given portfolio. The order of
// solvers fixes the deterministic tie-break. lambda <= 0 selects
// DefaultExploration.
func NewSelector(store *rating.Store, clusterer *cluster.KMeans, solvers []string, lambda float64) *Selector {
	if lambda <= 0 {
		lambda = DefaultExploration
	}
	return &Selector{
		store:     store,
		clusterer: clusterer,
		solvers:   append([]string(nil), solvers...),
		lambda:    lambda,
	}
}

// Score is one solver's UCB value inside a cluster.
type Score struct {
	Solver string  `json:"solver"`
	UCB    float64 `json:"ucb"`
}

// Select returns the arg-max UCB solver for the instance's cluster and
// records the selection in the trial counters.
func (s *Selector) Select(vec []float64) (string, error) {
	c, scores, err := s.scores(vec)
	if err != nil {
		return "", err
	}
	chosen := scores[0].Solver
	s.store.RecordTrial(c, chosen)
	return chosen, nil
}

// Rank returns the top-k solvers by descending UCB without touching the
// trial counters. k <= 0 or k > portfolio size returns the full ranking.
func (s *Selector) Rank(vec []float64, k int) ([]Score, error) {
	_, scores, err := s.scores(vec)
	if err != nil {
		return nil, err
	}
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Observe is the online-learning hook: the observed run counts as a
// one-sided match of the chosen solver against the cluster's current
// top-rated rival. Success scores 1, failure 0. This keeps ratings
// current after deployment without re-running a tournament.
func (s *Selector) Observe(vec []float64, solver string, out scenario.Outcome) error {
	c, err := s.clusterer.Assign(vec)
	if err != nil {
		return err
	}

	rival := ""
	for _, name := range s.solvers {
		if name == solver {
			continue
		}
		if rival == "" || s.store.Cluster(c, name) > s.store.Cluster(c, rival) {
			rival = name
		}
	}
	if rival == "" {
		return fmt.Errorf("selection: no rival solver for %q", solver)
	}

	score := 0.0
	if out.Success {
		score = 1.0
	}
	s.store.UpdatePair(c, solver, rival, score)
	return nil
}

// scores assigns the cluster and produces the full UCB ranking.
func (s *Selector) scores(vec []float64) (int, []Score, error) {
	if len(s.solvers) == 0 {
		return 0, nil, fmt.Errorf("selection: empty portfolio")
	}
	c, err := s.clusterer.Assign(vec)
	if err != nil {
		return 0, nil, err
	}

	total := s.store.TotalTrials(c)
	exploreNum := math.Log(float64(total) + 1)

	scores := make([]Score, len(s.solvers))
	for i, name := range s.solvers {
		n := s.store.Trials(c, name)
		explore := s.lambda * math.Sqrt(exploreNum/float64(n+1))
		scores[i] = Score{
			Solver: name,
			UCB:    s.store.Normalized(c, name) + explore,
		}
	}

	// Stable sort keeps registration order on exact UCB ties.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].UCB > scores[j].UCB
	})
	return c, scores, nil
}

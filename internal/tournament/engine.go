// Package tournament drives Swiss-system rating rounds over a solver
// portfolio: rank by current cluster rating, pair adjacent entries, play
// each pair on a training instance, and feed the results to the rating
// store.
package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/librexlabs/librex/internal/rating"
	"github.com/librexlabs/librex/internal/scenario"
)

// DefaultRounds is the number of Swiss rounds per cluster.
const DefaultRounds = 5

// runtimeTolerance is the band within which two runtimes count as a tie.
const runtimeTolerance = 1e-9

// Engine mutates a rating store by simulating pairwise matches. It holds
// no state of its own beyond configuration.
type Engine struct {
	store  *rating.Store
	rounds int
}

// NewEngine builds an engine over the given store. rounds <= 0 selects
// DefaultRounds.
func NewEngine(store *rating.Store, rounds int) *Engine {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	return &Engine{store: store, rounds: rounds}
}

// Rounds returns the configured round count.
func (e *Engine) Rounds() int { return e.rounds }

// Run plays the configured number of Swiss rounds for one cluster. Each
// round sorts solvers by cluster rating descending (name ascending on
// exact ties), pairs adjacent entries, and gives an odd solver out a bye
// that leaves its rating untouched. The i-th pair of a round plays the
// round-robin representative instance instances[(round+i) % len]; the
// winner is decided by Outcome.Beats, and runtimes equal within 1e-9 (or
// a double failure) score as split credit 0.5/0.5.
func (e *Engine) Run(ctx context.Context, cluster int, instances []scenario.Instance, solvers []scenario.Solver) error {
	if len(instances) == 0 {
		return fmt.Errorf("tournament: cluster %d has no training instances", cluster)
	}
	if len(solvers) < 2 {
		// Nothing to pair; ratings stay at their defaults.
		return nil
	}

	byName := make(map[string]scenario.Solver, len(solvers))
	names := make([]string, 0, len(solvers))
	for _, s := range solvers {
		byName[s.Name()] = s
		names = append(names, s.Name())
	}

	for round := 0; round < e.rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		sort.SliceStable(names, func(i, j int) bool {
			ri, rj := e.store.Cluster(cluster, names[i]), e.store.Cluster(cluster, names[j])
			if ri != rj {
				return ri > rj
			}
			return names[i] < names[j]
		})

		for pair := 0; pair+1 < len(names); pair += 2 {
			inst := instances[(round+pair/2)%len(instances)]
			a, b := byName[names[pair]], byName[names[pair+1]]
			score := playMatch(a, b, inst)
			e.store.UpdatePair(cluster, a.Name(), b.Name(), score)

			slog.Debug("tournament match",
				"cluster", cluster,
				"round", round,
				"instance", inst.ID,
				"a", a.Name(),
				"b", b.Name(),
				"score", score)
		}
		// With an odd portfolio the lowest-rated solver sits out.
	}
	return nil
}

// playMatch returns A's score against B on one instance: 1 win, 0 loss,
// 0.5 tie.
func playMatch(a, b scenario.Solver, inst scenario.Instance) float64 {
	outA, outB := a.Run(inst), b.Run(inst)
	if outA.Beats(outB, runtimeTolerance) {
		return 1
	}
	if outB.Beats(outA, runtimeTolerance) {
		return 0
	}
	return 0.5
}

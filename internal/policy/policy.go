// Package policy is the registry of selection policies the evaluation
// harness can drive. The core tournament/UCB model registers here next
// to the reference policies every comparison needs (single-best, random,
// oracle).
package policy

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-viper/mapstructure/v2"

	"github.com/librexlabs/librex/internal/dataset"
	"github.com/librexlabs/librex/internal/scenario"
	"github.com/librexlabs/librex/internal/selection"
)

// Kind names a registered policy implementation.
type Kind string

const (
	// KindLibrex is the tournament-rated, UCB-served meta-learner.
	KindLibrex Kind = "librex"

	// KindSingleBest always picks the solver with the best mean training
	// performance.
	KindSingleBest Kind = "singlebest"

	// KindRandom picks uniformly at random (seeded). Sanity floor.
	KindRandom Kind = "random"

	// KindOracle picks the per-instance best from the recorded table.
	// Regret against it is zero by construction.
	KindOracle Kind = "oracle"
)

// Observer is implemented by policies that keep learning while they
// serve: the harness feeds every scored outcome back through it before
// the next selection.
type Observer interface {
	Observe(inst scenario.Instance, solver string, out scenario.Outcome) error
}

// Policy is one algorithm-selection method under evaluation.
type Policy interface {
	// Name returns the policy identifier for reports.
	Name() string

	// Train fits the policy on the training split.
	Train(ctx context.Context, instances []scenario.Instance) error

	// Select picks a solver for one instance.
	Select(inst scenario.Instance) (string, error)

	// Rank returns up to k solver names, best first.
	Rank(inst scenario.Instance, k int) ([]string, error)
}

// Create builds a fresh, untrained policy instance for the scenario.
// Policy-specific parameters come from the spec's free-form params block.
// The harness calls Create once per fold so no state is shared between
// folds.
func Create(spec *scenario.Spec, table *dataset.Table) (Policy, error) {
	kind := Kind(spec.Policy.Kind)
	if kind == "" {
		kind = KindLibrex
	}

	switch kind {
	case KindLibrex:
		return newLibrexPolicy(spec, table)
	case KindSingleBest:
		return &singleBestPolicy{table: table}, nil
	case KindRandom:
		var params struct {
			Seed int64 `mapstructure:"seed"`
		}
		if err := mapstructure.Decode(spec.Policy.Params, &params); err != nil {
			return nil, fmt.Errorf("policy %q: %w", kind, err)
		}
		if params.Seed == 0 {
			params.Seed = 1
		}
		return &randomPolicy{
			solvers: table.Solvers(),
			rng:     rand.New(rand.NewSource(params.Seed)),
		}, nil
	case KindOracle:
		return &oraclePolicy{table: table}, nil
	default:
		return nil, fmt.Errorf("unknown policy kind %q (want librex, singlebest, random, or oracle)", spec.Policy.Kind)
	}
}

// librexPolicy adapts selection.Model to the Policy interface.
type librexPolicy struct {
	model *selection.Model
}

// onlineLibrexPolicy additionally implements Observer, so each observed
// run is fed back into the ratings between selections. Enabled by the
// `online` policy param.
type onlineLibrexPolicy struct {
	librexPolicy
}

func (p *onlineLibrexPolicy) Observe(inst scenario.Instance, solver string, out scenario.Outcome) error {
	return p.model.Observe(inst, solver, out)
}

func newLibrexPolicy(spec *scenario.Spec, table *dataset.Table) (Policy, error) {
	var params struct {
		Online bool `mapstructure:"online"`
	}
	if err := mapstructure.Decode(spec.Policy.Params, &params); err != nil {
		return nil, fmt.Errorf("policy librex: %w", err)
	}

	model, err := NewLibrexModel(spec, table)
	if err != nil {
		return nil, err
	}
	if params.Online {
		return &onlineLibrexPolicy{librexPolicy{model: model}}, nil
	}
	return &librexPolicy{model: model}, nil
}

// NewLibrexModel builds the tournament/UCB model configured by the
// scenario's model block. The train and select commands use it directly
// so trained state can be snapshotted.
func NewLibrexModel(spec *scenario.Spec, table *dataset.Table) (*selection.Model, error) {
	var opts []selection.Option
	if spec.Model.Seed != 0 {
		opts = append(opts, selection.WithSeed(spec.Model.Seed))
	}
	if spec.Model.Clusters > 0 {
		opts = append(opts, selection.WithClusters(spec.Model.Clusters))
	}
	if spec.Model.Rounds > 0 {
		opts = append(opts, selection.WithRounds(spec.Model.Rounds))
	}
	if spec.Model.KFactor > 0 {
		opts = append(opts, selection.WithKFactor(spec.Model.KFactor))
	}
	if spec.Model.Exploration > 0 {
		opts = append(opts, selection.WithExploration(spec.Model.Exploration))
	}
	if spec.Model.LazyFit != nil {
		opts = append(opts, selection.WithLazyFit(*spec.Model.LazyFit))
	}

	return selection.NewModel(table.PortfolioSolvers(), opts...)
}

func (p *librexPolicy) Name() string { return string(KindLibrex) }

func (p *librexPolicy) Model() *selection.Model { return p.model }

func (p *librexPolicy) Train(ctx context.Context, instances []scenario.Instance) error {
	return p.model.Fit(ctx, instances)
}

func (p *librexPolicy) Select(inst scenario.Instance) (string, error) {
	return p.model.Select(inst)
}

func (p *librexPolicy) Rank(inst scenario.Instance, k int) ([]string, error) {
	scores, err := p.model.Rank(inst, k)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(scores))
	for i, s := range scores {
		names[i] = s.Solver
	}
	return names, nil
}

// singleBestPolicy picks the solver with the lowest mean penalized
// runtime on the training split.
type singleBestPolicy struct {
	table *dataset.Table
	best  string
}

func (p *singleBestPolicy) Name() string { return string(KindSingleBest) }

func (p *singleBestPolicy) Train(_ context.Context, instances []scenario.Instance) error {
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID
	}
	best, bestMean := "", 0.0
	for _, s := range p.table.Solvers() {
		mean := p.table.MeanRuntime(s, ids)
		if best == "" || mean < bestMean {
			best, bestMean = s, mean
		}
	}
	p.best = best
	return nil
}

func (p *singleBestPolicy) Select(scenario.Instance) (string, error) {
	if p.best == "" {
		return "", fmt.Errorf("policy singlebest: not trained")
	}
	return p.best, nil
}

func (p *singleBestPolicy) Rank(inst scenario.Instance, k int) ([]string, error) {
	if p.best == "" {
		return nil, fmt.Errorf("policy singlebest: not trained")
	}
	names := []string{p.best}
	for _, s := range p.table.Solvers() {
		if s != p.best {
			names = append(names, s)
		}
	}
	if k > 0 && k < len(names) {
		names = names[:k]
	}
	return names, nil
}

// randomPolicy picks uniformly; the seed makes runs reproducible.
type randomPolicy struct {
	solvers []string
	rng     *rand.Rand
}

func (p *randomPolicy) Name() string { return string(KindRandom) }

func (p *randomPolicy) Train(context.Context, []scenario.Instance) error { return nil }

func (p *randomPolicy) Select(scenario.Instance) (string, error) {
	return p.solvers[p.rng.Intn(len(p.solvers))], nil
}

func (p *randomPolicy) Rank(_ scenario.Instance, k int) ([]string, error) {
	perm := p.rng.Perm(len(p.solvers))
	names := make([]string, len(perm))
	for i, idx := range perm {
		names[i] = p.solvers[idx]
	}
	if k > 0 && k < len(names) {
		names = names[:k]
	}
	return names, nil
}

// oraclePolicy reads the answer off the recorded table.
type oraclePolicy struct {
	table *dataset.Table
}

func (p *oraclePolicy) Name() string { return string(KindOracle) }

func (p *oraclePolicy) Train(context.Context, []scenario.Instance) error { return nil }

func (p *oraclePolicy) Select(inst scenario.Instance) (string, error) {
	best, _ := p.table.Oracle(inst.ID)
	return best, nil
}

func (p *oraclePolicy) Rank(inst scenario.Instance, k int) ([]string, error) {
	best, _ := p.table.Oracle(inst.ID)
	names := []string{best}
	for _, s := range p.table.Solvers() {
		if s != best {
			names = append(names, s)
		}
	}
	if k > 0 && k < len(names) {
		names = names[:k]
	}
	return names, nil
}

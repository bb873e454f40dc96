package selection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/librexlabs/librex/internal/cluster"
	"github.com/librexlabs/librex/internal/features"
	"github.com/librexlabs/librex/internal/rating"
	"github.com/librexlabs/librex/internal/scenario"
	"github.com/librexlabs/librex/internal/tournament"
)

// Model is one trained meta-learner instance: clusterer, rating store,
// tournament engine, and selector wired together. A Model owns all of
// its mutable state; do not share one across goroutines. Build one
// model per worker instead.
type Model struct {
	clusters    int
	rounds      int
	kFactor     float64
	exploration float64
	seed        int64
	lazyFit     bool
	standardize bool

	scaler    *features.Scaler
	clusterer *cluster.KMeans
	store     *rating.Store
	selector  *Selector
	solvers   []scenario.Solver
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithClusters sets the number of problem clusters (default 4).
func WithClusters(k int) Option { return func(m *Model) { m.clusters = k } }

// WithRounds sets the Swiss rounds per cluster (default 5).
func WithRounds(n int) Option { return func(m *Model) { m.rounds = n } }

// WithKFactor sets the Elo update constant (default 32).
func WithKFactor(k float64) Option { return func(m *Model) { m.kFactor = k } }

// WithExploration sets the UCB λ (default 1.0).
func WithExploration(lambda float64) Option { return func(m *Model) { m.exploration = lambda } }

// WithSeed fixes clustering (and lazy-fit) randomness.
func WithSeed(seed int64) Option { return func(m *Model) { m.seed = seed } }

// WithLazyFit controls whether an unfitted clusterer falls back to
// synthetic data instead of failing (default true).
func WithLazyFit(enabled bool) Option { return func(m *Model) { m.lazyFit = enabled } }

// WithStandardization controls whether training features are
// mean/variance standardized before clustering (default true).
func WithStandardization(enabled bool) Option { return func(m *Model) { m.standardize = enabled } }

// NewModel builds an untrained model over the solver portfolio. Solver
// order fixes the selection tie-break.
func NewModel(solvers []scenario.Solver, opts ...Option) (*Model, error) {
	if len(solvers) == 0 {
		return nil, fmt.Errorf("selection: portfolio must not be empty")
	}
	m := &Model{
		clusters:    4,
		rounds:      tournament.DefaultRounds,
		kFactor:     rating.DefaultKFactor,
		exploration: DefaultExploration,
		seed:        1,
		lazyFit:     true,
		standardize: true,
		solvers:     solvers,
	}
	for _, o := range opts {
		o(m)
	}

	cfg := cluster.DefaultConfig(m.clusters)
	cfg.Seed = m.seed
	cfg.LazyFit = m.lazyFit
	m.clusterer = cluster.New(cfg)
	m.store = rating.NewStore(m.kFactor)
	m.scaler = features.NewScaler()

	names := make([]string, len(solvers))
	for i, s := range solvers {
		names[i] = s.Name()
	}
	m.selector = NewSelector(m.store, m.clusterer, names, m.exploration)
	return m, nil
}

// Store exposes the model's rating store (used by persistence and
// tests).
func (m *Model) Store() *rating.Store { return m.store }

// Clusterer exposes the model's cluster state.
func (m *Model) Clusterer() *cluster.KMeans { return m.clusterer }

// Scaler exposes the model's feature scaler.
func (m *Model) Scaler() *features.Scaler { return m.scaler }

// vecOf returns the instance's feature vector on the model's scale.
func (m *Model) vecOf(inst scenario.Instance) ([]float64, error) {
	if m.scaler.Fitted() {
		return m.scaler.Transform(inst.Features)
	}
	return inst.Features, nil
}

// SolverNames returns the portfolio in registration order.
func (m *Model) SolverNames() []string {
	names := make([]string, len(m.solvers))
	for i, s := range m.solvers {
		names[i] = s.Name()
	}
	return names
}

// Restore reinstates a persisted rating store, cluster centroids, and
// scaler state, leaving configuration untouched. The selector is rebuilt
// over the restored store.
func (m *Model) Restore(storeSnap rating.Snapshot, centroids [][]float64, scalerMean, scalerStd []float64) error {
	if len(centroids) > 0 {
		if err := m.clusterer.Restore(centroids); err != nil {
			return err
		}
	}
	if len(scalerMean) > 0 {
		if err := m.scaler.Restore(scalerMean, scalerStd); err != nil {
			return err
		}
	}
	m.store = rating.Restore(storeSnap)
	m.selector = NewSelector(m.store, m.clusterer, m.SolverNames(), m.exploration)
	return nil
}

// Fit trains the model on a batch: cluster the training features once,
// then run the Swiss tournament inside every non-empty cluster.
func (m *Model) Fit(ctx context.Context, instances []scenario.Instance) error {
	if len(instances) == 0 {
		return fmt.Errorf("selection: cannot fit on zero instances")
	}

	vectors := make([][]float64, len(instances))
	for i, inst := range instances {
		vectors[i] = inst.Features
	}
	if m.standardize {
		if err := m.scaler.Fit(vectors); err != nil {
			return err
		}
		for i, raw := range vectors {
			scaled, err := m.scaler.Transform(raw)
			if err != nil {
				return err
			}
			vectors[i] = scaled
		}
	}
	if err := m.clusterer.Fit(vectors); err != nil {
		return err
	}

	grouped := make(map[int][]scenario.Instance)
	for i, inst := range instances {
		c, err := m.clusterer.Assign(vectors[i])
		if err != nil {
			return err
		}
		grouped[c] = append(grouped[c], inst)
	}

	engine := tournament.NewEngine(m.store, m.rounds)
	for c := 0; c < m.clusterer.K(); c++ {
		members := grouped[c]
		if len(members) == 0 {
			continue
		}
		if err := engine.Run(ctx, c, members, m.solvers); err != nil {
			return err
		}
		slog.Debug("cluster trained", "cluster", c, "instances", len(members))
	}
	return nil
}

// Select picks a solver for the instance and records the trial.
func (m *Model) Select(inst scenario.Instance) (string, error) {
	vec, err := m.vecOf(inst)
	if err != nil {
		return "", err
	}
	return m.selector.Select(vec)
}

// Rank returns the top-k UCB ranking without recording a trial.
func (m *Model) Rank(inst scenario.Instance, k int) ([]Score, error) {
	vec, err := m.vecOf(inst)
	if err != nil {
		return nil, err
	}
	return m.selector.Rank(vec, k)
}

// Observe feeds one observed run back into the ratings (online hook).
func (m *Model) Observe(inst scenario.Instance, solver string, out scenario.Outcome) error {
	vec, err := m.vecOf(inst)
	if err != nil {
		return err
	}
	return m.selector.Observe(vec, solver, out)
}

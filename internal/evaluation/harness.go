package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/librexlabs/librex/internal/dataset"
	"github.com/librexlabs/librex/internal/policy"
	"github.com/librexlabs/librex/internal/scenario"
)

// Config controls one evaluation run.
type Config struct {
	// Folds is the cross-validation fold count (default 10).
	Folds int

	// TopK is the ranking depth for top-k accuracy (default 3).
	TopK int

	// Seed drives the fold shuffle.
	Seed int64

	// Parallel runs folds concurrently, one fresh model per fold. The
	// models share nothing, so this is the one safe concurrency shape.
	Parallel bool
}

func (c Config) withDefaults() Config {
	if c.Folds <= 0 {
		c.Folds = 10
	}
	if c.TopK <= 0 {
		c.TopK = 3
	}
	return c
}

// InstanceResult scores one held-out instance.
type InstanceResult struct {
	InstanceID      string  `json:"instance_id"`
	Selected        string  `json:"selected"`
	OracleBest      string  `json:"oracle_best"`
	SelectedRuntime float64 `json:"selected_runtime"`
	OracleRuntime   float64 `json:"oracle_runtime"`
	Regret          float64 `json:"regret"`
	Solved          bool    `json:"solved"`
	TopKHit         bool    `json:"topk_hit"`

	// RegretUndefined marks the zero-oracle edge case; such instances
	// are excluded from regret aggregates but still count for accuracy.
	RegretUndefined bool `json:"regret_undefined,omitempty"`
}

// FoldResult aggregates one train/test split.
type FoldResult struct {
	Fold         int              `json:"fold"`
	TrainSize    int              `json:"train_size"`
	TestSize     int              `json:"test_size"`
	MeanRegret   float64          `json:"mean_regret"`
	MedianRegret float64          `json:"median_regret"`
	TopKAccuracy float64          `json:"topk_accuracy"`
	Top1Accuracy float64          `json:"top1_accuracy"`
	SolvedRate   float64          `json:"solved_rate"`
	Instances    []InstanceResult `json:"instances"`
}

// Result aggregates a full cross-validation run of one policy on one
// scenario.
type Result struct {
	Scenario     string       `json:"scenario"`
	Policy       string       `json:"policy"`
	Folds        []FoldResult `json:"folds"`
	MeanRegret   float64      `json:"mean_regret"`
	MedianRegret float64      `json:"median_regret"`
	TopKAccuracy float64      `json:"topk_accuracy"`
	Top1Accuracy float64      `json:"top1_accuracy"`
	SolvedRate   float64      `json:"solved_rate"`
	TopK         int          `json:"topk"`
	DurationMs   int64        `json:"duration_ms"`

	// Regrets is the flat per-instance regret series across all folds,
	// the input to bootstrap confidence intervals and paired tests.
	Regrets []float64 `json:"-"`
}

// Evaluate cross-validates the scenario's configured policy: one fresh
// policy instance per fold, trained on the fold's complement and scored
// on the held-out instances.
func Evaluate(ctx context.Context, spec *scenario.Spec, table *dataset.Table, instances []scenario.Instance, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	if len(instances) < cfg.Folds {
		return nil, fmt.Errorf("evaluation: %d instances cannot fill %d folds", len(instances), cfg.Folds)
	}

	started := time.Now()
	folds := KFold(len(instances), cfg.Folds, cfg.Seed)
	results := make([]FoldResult, len(folds))

	runFold := func(f int) error {
		pol, err := policy.Create(spec, table)
		if err != nil {
			return err
		}
		fr, err := evaluateFold(ctx, pol, table, instances, folds[f], cfg.TopK)
		if err != nil {
			return fmt.Errorf("fold %d: %w", f, err)
		}
		fr.Fold = f
		results[f] = *fr
		return nil
	}

	if cfg.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for f := range folds {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return runFold(f)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for f := range folds {
			if err := runFold(f); err != nil {
				return nil, err
			}
		}
	}

	res := aggregate(results, cfg.TopK)
	res.Scenario = spec.Name
	res.Policy = spec.Policy.Kind
	if res.Policy == "" {
		res.Policy = string(policy.KindLibrex)
	}
	res.DurationMs = time.Since(started).Milliseconds()

	slog.Debug("evaluation complete",
		"scenario", res.Scenario,
		"policy", res.Policy,
		"mean_regret", res.MeanRegret,
		"topk_accuracy", res.TopKAccuracy)
	return res, nil
}

// evaluateFold trains on everything outside the held-out index set and
// scores the held-out instances.
func evaluateFold(ctx context.Context, pol policy.Policy, table *dataset.Table, instances []scenario.Instance, heldOut []int, topK int) (*FoldResult, error) {
	held := make(map[int]struct{}, len(heldOut))
	for _, idx := range heldOut {
		held[idx] = struct{}{}
	}
	train := make([]scenario.Instance, 0, len(instances)-len(heldOut))
	for i, inst := range instances {
		if _, out := held[i]; !out {
			train = append(train, inst)
		}
	}

	if err := pol.Train(ctx, train); err != nil {
		return nil, err
	}

	fr := &FoldResult{TrainSize: len(train), TestSize: len(heldOut)}
	for _, idx := range heldOut {
		inst := instances[idx]
		ir, err := scoreInstance(pol, table, inst, topK)
		if err != nil {
			return nil, err
		}
		fr.Instances = append(fr.Instances, *ir)
	}
	summarizeFold(fr)
	return fr, nil
}

// scoreInstance runs one selection and compares it with the oracle.
func scoreInstance(pol policy.Policy, table *dataset.Table, inst scenario.Instance, topK int) (*InstanceResult, error) {
	selected, err := pol.Select(inst)
	if err != nil {
		return nil, err
	}
	ranked, err := pol.Rank(inst, topK)
	if err != nil {
		return nil, err
	}

	oracleBest, oracleOut := table.Oracle(inst.ID)
	selectedOut := table.Outcome(selected, inst.ID)

	// Online policies learn from the run before the next selection.
	if obs, ok := pol.(policy.Observer); ok {
		if err := obs.Observe(inst, selected, selectedOut); err != nil {
			return nil, err
		}
	}

	ir := &InstanceResult{
		InstanceID:      inst.ID,
		Selected:        selected,
		OracleBest:      oracleBest,
		SelectedRuntime: selectedOut.Runtime,
		OracleRuntime:   oracleOut.Runtime,
		Solved:          selectedOut.Success,
	}
	for _, name := range ranked {
		if name == oracleBest {
			ir.TopKHit = true
			break
		}
	}

	regret, err := Regret(selectedOut.Runtime, oracleOut.Runtime)
	switch {
	case err == nil:
		ir.Regret = regret
	case errors.Is(err, ErrZeroOracle):
		ir.RegretUndefined = true
	default:
		return nil, err
	}
	return ir, nil
}

func summarizeFold(fr *FoldResult) {
	var regrets []float64
	hits, top1, solved := 0, 0, 0
	for _, ir := range fr.Instances {
		if !ir.RegretUndefined {
			regrets = append(regrets, ir.Regret)
		}
		if ir.TopKHit {
			hits++
		}
		if ir.Selected == ir.OracleBest {
			top1++
		}
		if ir.Solved {
			solved++
		}
	}
	n := float64(len(fr.Instances))
	if n == 0 {
		return
	}
	if len(regrets) > 0 {
		fr.MeanRegret = stat.Mean(regrets, nil)
		fr.MedianRegret = median(regrets)
	}
	fr.TopKAccuracy = float64(hits) / n
	fr.Top1Accuracy = float64(top1) / n
	fr.SolvedRate = float64(solved) / n
}

func aggregate(folds []FoldResult, topK int) *Result {
	res := &Result{Folds: folds, TopK: topK}
	var regrets []float64
	hits, top1, solved, total := 0, 0, 0, 0
	for _, fr := range folds {
		for _, ir := range fr.Instances {
			total++
			if !ir.RegretUndefined {
				regrets = append(regrets, ir.Regret)
			}
			if ir.TopKHit {
				hits++
			}
			if ir.Selected == ir.OracleBest {
				top1++
			}
			if ir.Solved {
				solved++
			}
		}
	}
	if total == 0 {
		return res
	}
	res.Regrets = regrets
	if len(regrets) > 0 {
		res.MeanRegret = stat.Mean(regrets, nil)
		res.MedianRegret = median(regrets)
	}
	res.TopKAccuracy = float64(hits) / float64(total)
	res.Top1Accuracy = float64(top1) / float64(total)
	res.SolvedRate = float64(solved) / float64(total)
	return res
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/librexlabs/librex/internal/dataset"
	"github.com/librexlabs/librex/internal/evaluation"
	"github.com/librexlabs/librex/internal/reporting"
	"github.com/librexlabs/librex/internal/scenario"
	"github.com/librexlabs/librex/internal/statistics"
)

var (
	evalFolds      int
	evalTopK       int
	evalSeed       int64
	evalParallel   bool
	evalOutputPath string
	evalJUnitPath  string
	evalCompare    []string
	evalConfidence float64
)

func newEvaluateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <scenario.yaml>",
		Short: "Cross-validate the scenario's selection policy",
		Long: `Evaluate runs k-fold cross-validation of the scenario's configured
policy, scoring every held-out instance against the oracle-best solver
(regret, top-k accuracy, solved rate).

With --compare, additional policies are evaluated on the identical folds
and tested for significance with bootstrap confidence intervals and a
Wilcoxon signed-rank test over the paired per-instance regrets.`,
		Args: cobra.ExactArgs(1),
		RunE: evaluateCommandE,
	}

	cmd.Flags().IntVar(&evalFolds, "folds", 10, "Cross-validation fold count")
	cmd.Flags().IntVar(&evalTopK, "topk", 3, "Ranking depth for top-k accuracy")
	cmd.Flags().Int64Var(&evalSeed, "seed", 1, "Fold shuffle seed")
	cmd.Flags().BoolVar(&evalParallel, "parallel", false, "Evaluate folds concurrently (one model per fold)")
	cmd.Flags().StringVarP(&evalOutputPath, "output", "o", "", "Write the full result as JSON to this path")
	cmd.Flags().StringVar(&evalJUnitPath, "junit", "", "Write a JUnit XML report to this path")
	cmd.Flags().StringSliceVar(&evalCompare, "compare", nil, "Additional policy kinds to evaluate and compare against")
	cmd.Flags().Float64Var(&evalConfidence, "confidence", 0.95, "Confidence level for comparison intervals")

	return cmd
}

func evaluateCommandE(cmd *cobra.Command, args []string) error {
	spec, table, instances, err := loadScenario(args[0])
	if err != nil {
		return err
	}

	cfg := evaluation.Config{
		Folds:    evalFolds,
		TopK:     evalTopK,
		Seed:     evalSeed,
		Parallel: evalParallel,
	}

	res, err := evaluation.Evaluate(cmd.Context(), spec, table, instances, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printResult(out, res)

	if evalOutputPath != "" {
		if err := reporting.WriteJSON(res, evalOutputPath); err != nil {
			return err
		}
	}
	if evalJUnitPath != "" {
		if err := reporting.WriteJUnit(res, spec.RegretThreshold, evalJUnitPath); err != nil {
			return err
		}
	}

	for _, kind := range evalCompare {
		rival, err := evaluateRival(cmd, spec, table, instances, cfg, kind)
		if err != nil {
			return err
		}
		printComparison(out, res, rival)
	}

	if spec.RegretThreshold > 0 && res.MeanRegret > spec.RegretThreshold {
		return &ThresholdError{
			Message: fmt.Sprintf("mean regret %.4f exceeds scenario threshold %.4f", res.MeanRegret, spec.RegretThreshold),
		}
	}
	return nil
}

// evaluateRival runs a second policy on the same folds by re-evaluating
// with the same seed and an overridden policy kind.
func evaluateRival(cmd *cobra.Command, spec *scenario.Spec, table *dataset.Table, instances []scenario.Instance, cfg evaluation.Config, kind string) (*evaluation.Result, error) {
	rivalSpec := *spec
	rivalSpec.Policy = scenario.PolicyConfig{Kind: kind}
	return evaluation.Evaluate(cmd.Context(), &rivalSpec, table, instances, cfg)
}

func printResult(out io.Writer, res *evaluation.Result) {
	fmt.Fprintf(out, "Scenario %s, policy %s (%d folds):\n", res.Scenario, res.Policy, len(res.Folds))
	fmt.Fprintf(out, "  mean regret:   %.4f\n", res.MeanRegret)
	fmt.Fprintf(out, "  median regret: %.4f\n", res.MedianRegret)
	fmt.Fprintf(out, "  top-1 acc:     %.4f\n", res.Top1Accuracy)
	fmt.Fprintf(out, "  top-%d acc:     %.4f\n", res.TopK, res.TopKAccuracy)
	fmt.Fprintf(out, "  solved rate:   %.4f\n", res.SolvedRate)
}

func printComparison(out io.Writer, base, rival *evaluation.Result) {
	diff := statistics.ComparePaired(base.Regrets, rival.Regrets, evalConfidence, evalSeed)
	_, p := statistics.WilcoxonSignedRank(base.Regrets, rival.Regrets)

	verdict := "not significant"
	if diff.Significant {
		if diff.Interval.Mean < 0 {
			verdict = fmt.Sprintf("%s significantly better", base.Policy)
		} else {
			verdict = fmt.Sprintf("%s significantly better", rival.Policy)
		}
	}

	fmt.Fprintf(out, "\n%s vs %s over %d paired instances:\n", base.Policy, rival.Policy, diff.N)
	fmt.Fprintf(out, "  regret delta: %.4f  CI[%.4f, %.4f] @ %.0f%%\n",
		diff.Interval.Mean, diff.Interval.Lower, diff.Interval.Upper, diff.Interval.ConfidenceLevel*100)
	fmt.Fprintf(out, "  wilcoxon p:   %.4f\n", p)
	fmt.Fprintf(out, "  verdict:      %s\n", verdict)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librexlabs/librex/internal/knowledge"
	"github.com/librexlabs/librex/internal/policy"
)

var (
	selectKnowledgePath string
	selectTopK          int
)

func newSelectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <scenario.yaml> <instance-id>",
		Short: "Rank solvers for one instance using saved knowledge",
		Long: `Select loads a knowledge snapshot, restores the trained model, and
prints the UCB ranking for one instance of the scenario.`,
		Args: cobra.ExactArgs(2),
		RunE: selectCommandE,
	}

	cmd.Flags().StringVarP(&selectKnowledgePath, "knowledge", "k", "knowledge.json", "Knowledge snapshot to load")
	cmd.Flags().IntVarP(&selectTopK, "top", "t", 0, "Limit output to the top N solvers (0 = all)")

	return cmd
}

func selectCommandE(cmd *cobra.Command, args []string) error {
	spec, table, instances, err := loadScenario(args[0])
	if err != nil {
		return err
	}

	var target *int
	for i := range instances {
		if instances[i].ID == args[1] {
			target = &i
			break
		}
	}
	if target == nil {
		return fmt.Errorf("instance %q not found in scenario %s", args[1], spec.Name)
	}

	model, err := policy.NewLibrexModel(spec, table)
	if err != nil {
		return err
	}

	snap, err := knowledge.Load(selectKnowledgePath)
	if err != nil {
		return err
	}
	if err := snap.Apply(model); err != nil {
		return err
	}

	scores, err := model.Rank(instances[*target], selectTopK)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Ranking for %s (scenario %s):\n", args[1], spec.Name)
	for i, s := range scores {
		fmt.Fprintf(out, "%2d. %-20s ucb=%.4f\n", i+1, s.Solver, s.UCB)
	}
	return nil
}

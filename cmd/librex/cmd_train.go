package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librexlabs/librex/internal/knowledge"
	"github.com/librexlabs/librex/internal/policy"
)

var trainOutputPath string

func newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train <scenario.yaml>",
		Short: "Fit the selection model on a scenario and save its knowledge",
		Long: `Train fits the tournament/UCB model on every instance of a scenario:
it clusters the feature space, runs the Swiss rating rounds per cluster,
and writes the resulting ratings and centroids to a knowledge snapshot.

Snapshots ending in .zst are zstd-compressed.`,
		Args: cobra.ExactArgs(1),
		RunE: trainCommandE,
	}

	cmd.Flags().StringVarP(&trainOutputPath, "output", "o", "knowledge.json", "Knowledge snapshot path (.json or .json.zst)")

	return cmd
}

func trainCommandE(cmd *cobra.Command, args []string) error {
	spec, table, instances, err := loadScenario(args[0])
	if err != nil {
		return err
	}

	model, err := policy.NewLibrexModel(spec, table)
	if err != nil {
		return err
	}
	if err := model.Fit(cmd.Context(), instances); err != nil {
		return err
	}

	snap := knowledge.FromModel(model, spec.Name)
	if err := knowledge.Save(snap, trainOutputPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Trained %s on %d instances (%d solvers), knowledge written to %s\n",
		spec.Name, len(instances), len(spec.Solvers), trainOutputPath)
	return nil
}

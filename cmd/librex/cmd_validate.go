package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/librexlabs/librex/internal/validation"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml> [scenario.yaml ...]",
		Short: "Validate scenario files against the schema",
		Args:  cobra.MinimumNArgs(1),
		RunE:  validateCommandE,
	}
}

func validateCommandE(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	invalid := 0

	for _, path := range args {
		errs, err := validation.ValidateScenarioFile(path)
		if err != nil {
			return err
		}
		if len(errs) == 0 {
			fmt.Fprintf(out, "%s: ok\n", path)
			continue
		}
		invalid++
		fmt.Fprintf(out, "%s: %d problem(s)\n", path, len(errs))
		for _, e := range errs {
			fmt.Fprintf(out, "  %s\n", e)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d scenario file(s) failed validation", invalid, len(args))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess   = 0 // Evaluation passed
	ExitThreshold = 1 // Mean regret exceeded the scenario threshold
	ExitError     = 2 // Configuration or runtime error
)

// ThresholdError indicates that the evaluation ran successfully, but the
// scenario's regret threshold was exceeded.
type ThresholdError struct {
	Message string
}

func (e *ThresholdError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var thresholdErr *ThresholdError
		if errors.As(err, &thresholdErr) {
			os.Exit(ExitThreshold)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}

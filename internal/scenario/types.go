package scenario

// Instance is a single problem instance: an identifier plus the
// fixed-length numeric feature vector describing it.
type Instance struct {
	ID       string    `json:"id"`
	Features []float64 `json:"features"`
}

// Outcome is one observed solver run on one instance.
type Outcome struct {
	// Success is false when the solver timed out, crashed, or produced
	// no usable answer within the cutoff.
	Success bool `json:"success"`

	// Runtime is the wall-clock seconds the run took. For failed runs
	// this holds the penalty runtime, not a real measurement.
	Runtime float64 `json:"runtime"`
}

// Beats reports whether o is a strictly better result than other:
// success beats failure, and between two successes the strictly lower
// runtime wins. Equal outcomes (within tolerance) do not beat each other.
func (o Outcome) Beats(other Outcome, tolerance float64) bool {
	if o.Success != other.Success {
		return o.Success
	}
	if !o.Success {
		return false
	}
	return other.Runtime-o.Runtime > tolerance
}

// Solver is anything that can report how it performs on an instance.
// In the evaluation harness solvers are backed by recorded runtime
// tables; a live deployment would wrap real solver binaries.
type Solver interface {
	// Name returns the stable solver identifier used in rating tables.
	Name() string

	// Run reports the solver's outcome on the given instance.
	Run(inst Instance) Outcome
}

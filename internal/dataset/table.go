package dataset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/librexlabs/librex/internal/scenario"
)

// Table holds a recorded runtime matrix: one outcome per (solver,
// instance) pair, derived from a scenario's runtime CSV. Values at or
// above the cutoff, negative, or unparsable are recorded as failures at
// the penalty runtime so that aggregates stay computable over partial
// data.
type Table struct {
	solvers  []string
	ids      []string
	index    map[string]int // instance ID -> row
	outcomes map[string][]scenario.Outcome
	penalty  float64
}

// LoadTable reads a runtime CSV (instance_id column plus one column per
// solver) for the given solver portfolio.
func LoadTable(path string, solvers []string, cutoff, penalty float64) (*Table, error) {
	headers, rows, err := loadCSV(path)
	if err != nil {
		return nil, err
	}

	available := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		available[h] = struct{}{}
	}
	if _, ok := available[instanceColumn]; !ok {
		return nil, fmt.Errorf("csv: %s has no %q column", path, instanceColumn)
	}
	for _, s := range solvers {
		if _, ok := available[s]; !ok {
			return nil, fmt.Errorf("csv: %s has no column for solver %q", path, s)
		}
	}

	t := &Table{
		solvers:  append([]string(nil), solvers...),
		ids:      make([]string, 0, len(rows)),
		index:    make(map[string]int, len(rows)),
		outcomes: make(map[string][]scenario.Outcome, len(solvers)),
		penalty:  penalty,
	}
	for _, s := range solvers {
		t.outcomes[s] = make([]scenario.Outcome, 0, len(rows))
	}

	for _, row := range rows {
		id := row[instanceColumn]
		if _, dup := t.index[id]; dup {
			return nil, fmt.Errorf("csv: %s lists instance %q twice", path, id)
		}
		t.index[id] = len(t.ids)
		t.ids = append(t.ids, id)

		for _, s := range solvers {
			t.outcomes[s] = append(t.outcomes[s], parseOutcome(row[s], cutoff, penalty))
		}
	}
	return t, nil
}

func parseOutcome(raw string, cutoff, penalty float64) scenario.Outcome {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 || v >= cutoff {
		return scenario.Outcome{Success: false, Runtime: penalty}
	}
	return scenario.Outcome{Success: true, Runtime: v}
}

// Solvers returns the portfolio in declaration order.
func (t *Table) Solvers() []string { return t.solvers }

// InstanceIDs returns all instance identifiers in file order.
func (t *Table) InstanceIDs() []string { return t.ids }

// Penalty returns the runtime charged to failed runs.
func (t *Table) Penalty() float64 { return t.penalty }

// Outcome looks up the recorded run of solver on instance. Instances
// absent from the table surface as failed outcomes, not errors.
func (t *Table) Outcome(solver, instanceID string) scenario.Outcome {
	col, ok := t.outcomes[solver]
	if !ok {
		return scenario.Outcome{Success: false, Runtime: t.penalty}
	}
	row, ok := t.index[instanceID]
	if !ok {
		return scenario.Outcome{Success: false, Runtime: t.penalty}
	}
	return col[row]
}

// Oracle returns the best solver and its outcome for an instance:
// successful runs beat failures, lower runtime breaks ties, portfolio
// order breaks exact ties.
func (t *Table) Oracle(instanceID string) (string, scenario.Outcome) {
	best := t.solvers[0]
	bestOut := t.Outcome(best, instanceID)
	for _, s := range t.solvers[1:] {
		out := t.Outcome(s, instanceID)
		if out.Beats(bestOut, 0) {
			best, bestOut = s, out
		}
	}
	return best, bestOut
}

// MeanRuntime returns a solver's mean penalized runtime over the given
// instances (all instances when ids is nil).
func (t *Table) MeanRuntime(solver string, ids []string) float64 {
	if ids == nil {
		ids = t.ids
	}
	if len(ids) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range ids {
		sum += t.Outcome(solver, id).Runtime
	}
	return sum / float64(len(ids))
}

// TableSolver adapts one column of a Table to the scenario.Solver
// interface so recorded data can stand in for live solver binaries.
type TableSolver struct {
	name  string
	table *Table
}

// NewTableSolver wraps the named column of the table.
func NewTableSolver(name string, table *Table) *TableSolver {
	return &TableSolver{name: name, table: table}
}

// Name implements scenario.Solver.
func (s *TableSolver) Name() string { return s.name }

// Run implements scenario.Solver by looking up the recorded outcome.
func (s *TableSolver) Run(inst scenario.Instance) scenario.Outcome {
	return s.table.Outcome(s.name, inst.ID)
}

// PortfolioSolvers wraps every column of the table as a scenario.Solver,
// in portfolio order.
func (t *Table) PortfolioSolvers() []scenario.Solver {
	out := make([]scenario.Solver, len(t.solvers))
	for i, name := range t.solvers {
		out[i] = NewTableSolver(name, t)
	}
	return out
}

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librexlabs/librex/internal/scenario"
)

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadTable(t *testing.T) {
	path := writeCSV(t, `instance_id,minisat,glucose
i1,1.5,2.5
i2,350,0.9
i3,timeout,-3
`)

	table, err := LoadTable(path, []string{"minisat", "glucose"}, 300, 3000)
	require.NoError(t, err)

	assert.Equal(t, []string{"minisat", "glucose"}, table.Solvers())
	assert.Equal(t, []string{"i1", "i2", "i3"}, table.InstanceIDs())
	assert.Equal(t, 3000.0, table.Penalty())

	assert.Equal(t, scenario.Outcome{Success: true, Runtime: 1.5}, table.Outcome("minisat", "i1"))

	// At or above cutoff counts as a failure at the penalty runtime.
	assert.Equal(t, scenario.Outcome{Success: false, Runtime: 3000}, table.Outcome("minisat", "i2"))

	// Unparsable and negative cells are failures too.
	assert.Equal(t, scenario.Outcome{Success: false, Runtime: 3000}, table.Outcome("minisat", "i3"))
	assert.Equal(t, scenario.Outcome{Success: false, Runtime: 3000}, table.Outcome("glucose", "i3"))
}

func TestLoadTable_MissingColumns(t *testing.T) {
	noID := writeCSV(t, "solver_a\n1.0\n")
	_, err := LoadTable(noID, []string{"solver_a"}, 300, 3000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance_id")

	noSolver := writeCSV(t, "instance_id,solver_a\ni1,1.0\n")
	_, err = LoadTable(noSolver, []string{"solver_b"}, 300, 3000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solver_b")
}

func TestLoadTable_DuplicateInstance(t *testing.T) {
	path := writeCSV(t, "instance_id,a\ni1,1.0\ni1,2.0\n")
	_, err := LoadTable(path, []string{"a"}, 300, 3000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twice")
}

func TestOutcome_UnknownLookups(t *testing.T) {
	path := writeCSV(t, "instance_id,a\ni1,1.0\n")
	table, err := LoadTable(path, []string{"a"}, 300, 3000)
	require.NoError(t, err)

	assert.False(t, table.Outcome("a", "missing").Success)
	assert.Equal(t, 3000.0, table.Outcome("a", "missing").Runtime)
	assert.False(t, table.Outcome("nope", "i1").Success)
}

func TestOracle(t *testing.T) {
	path := writeCSV(t, `instance_id,a,b,c
fastest-b,10,2,5
only-c,timeout,400,7
all-fail,timeout,timeout,timeout
tie,3,3,9
`)
	table, err := LoadTable(path, []string{"a", "b", "c"}, 300, 3000)
	require.NoError(t, err)

	name, out := table.Oracle("fastest-b")
	assert.Equal(t, "b", name)
	assert.Equal(t, 2.0, out.Runtime)

	name, _ = table.Oracle("only-c")
	assert.Equal(t, "c", name, "the only successful solver wins")

	name, out = table.Oracle("all-fail")
	assert.Equal(t, "a", name, "portfolio order breaks all-failed ties")
	assert.False(t, out.Success)

	name, _ = table.Oracle("tie")
	assert.Equal(t, "a", name, "portfolio order breaks exact runtime ties")
}

func TestMeanRuntime(t *testing.T) {
	path := writeCSV(t, `instance_id,a
i1,10
i2,timeout
i3,20
`)
	table, err := LoadTable(path, []string{"a"}, 300, 3000)
	require.NoError(t, err)

	assert.InDelta(t, (10+3000+20)/3.0, table.MeanRuntime("a", nil), 1e-9)
	assert.InDelta(t, 15.0, table.MeanRuntime("a", []string{"i1", "i3"}), 1e-9)
	assert.Equal(t, 0.0, table.MeanRuntime("a", []string{}))
}

func TestTableSolver(t *testing.T) {
	path := writeCSV(t, "instance_id,a,b\ni1,1.0,2.0\n")
	table, err := LoadTable(path, []string{"a", "b"}, 300, 3000)
	require.NoError(t, err)

	solvers := table.PortfolioSolvers()
	require.Len(t, solvers, 2)
	assert.Equal(t, "a", solvers[0].Name())

	out := solvers[1].Run(scenario.Instance{ID: "i1"})
	assert.Equal(t, scenario.Outcome{Success: true, Runtime: 2.0}, out)
}

func TestLoadFeatures(t *testing.T) {
	path := writeCSV(t, `instance_id,vars,clauses
i1,100,250
i2,7,not-a-number
i3,,4
`)
	ids, vectors, err := LoadFeatures(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"i1", "i2", "i3"}, ids)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float64{100, 250}, vectors[0], "header order fixes the dimension layout")
	assert.Equal(t, []float64{7, 0}, vectors[1], "unparsable cells count as missing and fill with the default")
	assert.Equal(t, []float64{0, 4}, vectors[2], "empty cells count as missing and fill with the default")
}

func TestLoadFeatures_Errors(t *testing.T) {
	_, _, err := LoadFeatures(writeCSV(t, "vars\n1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instance_id")

	_, _, err = LoadFeatures(writeCSV(t, "instance_id\ni1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no feature columns")

	_, _, err = LoadFeatures(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestLoadCSV_RaggedRow(t *testing.T) {
	// encoding/csv itself rejects rows with mismatched field counts.
	_, _, err := loadCSV(writeCSV(t, "instance_id,a\ni1,1.0,extra\n"))
	assert.Error(t, err)
}

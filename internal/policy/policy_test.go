package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librexlabs/librex/internal/dataset"
	"github.com/librexlabs/librex/internal/scenario"
	"github.com/librexlabs/librex/internal/selection"
)

func testTable(t *testing.T) (*scenario.Spec, *dataset.Table) {
	t.Helper()
	csv := `instance_id,quick,steady,flaky
i1,1,10,timeout
i2,2,11,timeout
i3,3,12,0.5
i4,4,13,timeout
`
	path := filepath.Join(t.TempDir(), "runtimes.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	spec := &scenario.Spec{
		Name:        "policy-fixture",
		Solvers:     []string{"quick", "steady", "flaky"},
		RuntimeFile: path,
		CutoffSec:   300,
		Model:       scenario.ModelConfig{Clusters: 1, Seed: 2},
	}
	table, err := dataset.LoadTable(path, spec.Solvers, spec.CutoffSec, spec.Penalty())
	require.NoError(t, err)
	return spec, table
}

func allInstances() []scenario.Instance {
	return []scenario.Instance{
		{ID: "i1", Features: []float64{1, 2}},
		{ID: "i2", Features: []float64{2, 4}},
		{ID: "i3", Features: []float64{3, 6}},
		{ID: "i4", Features: []float64{4, 8}},
	}
}

func TestCreate_DefaultsToLibrex(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = ""

	pol, err := Create(spec, table)
	require.NoError(t, err)
	assert.Equal(t, "librex", pol.Name())
}

func TestCreate_UnknownKind(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = "greedy"

	_, err := Create(spec, table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greedy")
}

func TestSingleBest(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindSingleBest)

	pol, err := Create(spec, table)
	require.NoError(t, err)

	// Untrained policies refuse to answer.
	_, err = pol.Select(allInstances()[0])
	assert.Error(t, err)

	require.NoError(t, pol.Train(context.Background(), allInstances()))

	name, err := pol.Select(allInstances()[2])
	require.NoError(t, err)
	assert.Equal(t, "quick", name, "lowest mean penalized runtime wins")

	ranked, err := pol.Rank(allInstances()[0], 2)
	require.NoError(t, err)
	assert.Equal(t, "quick", ranked[0])
	assert.Len(t, ranked, 2)
}

func TestRandom_SeededReproducibility(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindRandom)
	spec.Policy.Params = map[string]any{"seed": 99}

	draw := func() []string {
		pol, err := Create(spec, table)
		require.NoError(t, err)
		require.NoError(t, pol.Train(context.Background(), nil))
		out := make([]string, 10)
		for i := range out {
			out[i], err = pol.Select(allInstances()[0])
			require.NoError(t, err)
		}
		return out
	}

	assert.Equal(t, draw(), draw())
}

func TestRandom_SelectsWithinPortfolio(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindRandom)

	pol, err := Create(spec, table)
	require.NoError(t, err)

	valid := map[string]bool{"quick": true, "steady": true, "flaky": true}
	for i := 0; i < 20; i++ {
		name, err := pol.Select(allInstances()[i%4])
		require.NoError(t, err)
		assert.True(t, valid[name], "unknown solver %q", name)
	}

	ranked, err := pol.Rank(allInstances()[0], 0)
	require.NoError(t, err)
	assert.Len(t, ranked, 3)
}

func TestOracle(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindOracle)

	pol, err := Create(spec, table)
	require.NoError(t, err)
	require.NoError(t, pol.Train(context.Background(), nil))

	name, err := pol.Select(scenario.Instance{ID: "i3"})
	require.NoError(t, err)
	assert.Equal(t, "flaky", name, "flaky's 0.5s beats quick's 3s on i3")

	ranked, err := pol.Rank(scenario.Instance{ID: "i1"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"quick"}, ranked)
}

func TestLibrex_EndToEnd(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindLibrex)
	spec.Model.Exploration = 0.25

	pol, err := Create(spec, table)
	require.NoError(t, err)
	require.NoError(t, pol.Train(context.Background(), allInstances()))

	name, err := pol.Select(allInstances()[1])
	require.NoError(t, err)
	assert.Contains(t, []string{"quick", "steady", "flaky"}, name)

	ranked, err := pol.Rank(allInstances()[1], 2)
	require.NoError(t, err)
	assert.Len(t, ranked, 2)
}

func TestLibrex_OnlineParamEnablesFeedback(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindLibrex)

	offline, err := Create(spec, table)
	require.NoError(t, err)
	_, ok := offline.(Observer)
	assert.False(t, ok, "without the online param the policy must not observe")

	spec.Policy.Params = map[string]any{"online": true}
	online, err := Create(spec, table)
	require.NoError(t, err)
	obs, ok := online.(Observer)
	require.True(t, ok, "online: true must enable the feedback hook")

	require.NoError(t, online.Train(context.Background(), allInstances()))

	model := online.(interface{ Model() *selection.Model }).Model()
	before := model.Store().Global("steady")
	require.NoError(t, obs.Observe(allInstances()[0], "steady", scenario.Outcome{Success: true, Runtime: 1}))
	assert.NotEqual(t, before, model.Store().Global("steady"),
		"observed outcomes must move the ratings")
}

func TestNewLibrexModel_HonorsConfig(t *testing.T) {
	spec, table := testTable(t)
	spec.Model = scenario.ModelConfig{Clusters: 2, Rounds: 3, Seed: 7}

	m, err := NewLibrexModel(spec, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"quick", "steady", "flaky"}, m.SolverNames())
	assert.Equal(t, 2, m.Clusterer().K())
}

func TestCreate_BadParams(t *testing.T) {
	spec, table := testTable(t)
	spec.Policy.Kind = string(KindRandom)
	spec.Policy.Params = map[string]any{"seed": "not-a-number"}

	_, err := Create(spec, table)
	assert.Error(t, err)
}

package validation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenario = `
name: sat-demo
description: SAT portfolio demo
solvers: [minisat, glucose, lingeling]
features: data/features.csv
runtimes: data/runtimes.csv
cutoff_seconds: 300
penalty_factor: 10
model:
  clusters: 4
  rounds: 5
  exploration: 1.0
  seed: 42
  lazy_fit: true
policy:
  kind: librex
regret_threshold: 0.5
`

func TestValidateScenarioBytes_Valid(t *testing.T) {
	errs := ValidateScenarioBytes([]byte(validScenario))
	assert.Empty(t, errs)
}

func TestValidateScenarioBytes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing required fields",
			yaml: "name: x\n",
			want: "/",
		},
		{
			name: "single solver",
			yaml: "name: x\nsolvers: [a]\nruntimes: r.csv\ncutoff_seconds: 10\n",
			want: "/solvers",
		},
		{
			name: "duplicate solvers",
			yaml: "name: x\nsolvers: [a, a]\nruntimes: r.csv\ncutoff_seconds: 10\n",
			want: "/solvers",
		},
		{
			name: "zero cutoff",
			yaml: "name: x\nsolvers: [a, b]\nruntimes: r.csv\ncutoff_seconds: 0\n",
			want: "/cutoff_seconds",
		},
		{
			name: "unknown policy kind",
			yaml: "name: x\nsolvers: [a, b]\nruntimes: r.csv\ncutoff_seconds: 10\npolicy:\n  kind: greedy\n",
			want: "/policy/kind",
		},
		{
			name: "unknown top-level key",
			yaml: "name: x\nsolvers: [a, b]\nruntimes: r.csv\ncutoff_seconds: 10\nbudget: 3\n",
			want: "/",
		},
		{
			name: "non-integer clusters",
			yaml: "name: x\nsolvers: [a, b]\nruntimes: r.csv\ncutoff_seconds: 10\nmodel:\n  clusters: 2.5\n",
			want: "/model/clusters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateScenarioBytes([]byte(tt.yaml))
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if strings.HasPrefix(e, tt.want) {
					found = true
				}
			}
			assert.True(t, found, "want an error at %s, got %v", tt.want, errs)
		})
	}
}

func TestValidateScenarioBytes_MalformedYAML(t *testing.T) {
	errs := ValidateScenarioBytes([]byte("solvers: [unclosed"))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "YAML parse error")
}

func TestValidateScenarioFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validScenario), 0o644))

	errs, err := ValidateScenarioFile(path)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateScenarioFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

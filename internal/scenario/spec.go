package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Spec describes one benchmark scenario: the solver portfolio, where its
// recorded data lives, and how the selection model should be configured.
type Spec struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Solvers     []string `yaml:"solvers"`

	// FeatureFile and RuntimeFile are CSV paths, resolved relative to
	// the spec file's directory when not absolute.
	FeatureFile string `yaml:"features"`
	RuntimeFile string `yaml:"runtimes"`

	// CutoffSec is the per-run timeout used when the runtime table was
	// recorded. Runs at or above it count as failures.
	CutoffSec float64 `yaml:"cutoff_seconds"`

	// PenaltyFactor scales the cutoff into the penalty runtime charged
	// to failed runs (PAR10 when 10).
	PenaltyFactor float64 `yaml:"penalty_factor,omitempty"`

	Model  ModelConfig  `yaml:"model"`
	Policy PolicyConfig `yaml:"policy,omitempty"`

	// RegretThreshold is the mean-regret ceiling used by CI reporting.
	// Zero means no threshold.
	RegretThreshold float64 `yaml:"regret_threshold,omitempty"`
}

// ModelConfig controls the selection model built for this scenario.
type ModelConfig struct {
	Clusters    int     `yaml:"clusters"`
	Rounds      int     `yaml:"rounds"`
	KFactor     float64 `yaml:"k_factor,omitempty"`
	Exploration float64 `yaml:"exploration,omitempty"`
	Seed        int64   `yaml:"seed,omitempty"`
	LazyFit     *bool   `yaml:"lazy_fit,omitempty"`
}

// PolicyConfig names the selection policy under evaluation along with
// free-form, policy-specific parameters.
type PolicyConfig struct {
	Kind   string         `yaml:"kind"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Load reads and validates a scenario spec from a YAML file. Data file
// paths are resolved relative to the spec's directory.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	base := filepath.Dir(path)
	if spec.FeatureFile != "" && !filepath.IsAbs(spec.FeatureFile) {
		spec.FeatureFile = filepath.Join(base, spec.FeatureFile)
	}
	if spec.RuntimeFile != "" && !filepath.IsAbs(spec.RuntimeFile) {
		spec.RuntimeFile = filepath.Join(base, spec.RuntimeFile)
	}

	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &spec, nil
}

// Validate checks that the spec is complete enough to run.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Solvers) < 2 {
		return fmt.Errorf("at least 2 solvers are required, got %d", len(s.Solvers))
	}
	seen := make(map[string]struct{}, len(s.Solvers))
	for _, name := range s.Solvers {
		if name == "" {
			return fmt.Errorf("solver names must be non-empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate solver %q", name)
		}
		seen[name] = struct{}{}
	}
	if s.RuntimeFile == "" {
		return fmt.Errorf("runtimes file is required")
	}
	if s.CutoffSec <= 0 {
		return fmt.Errorf("cutoff_seconds must be positive, got %g", s.CutoffSec)
	}
	if s.PenaltyFactor < 0 {
		return fmt.Errorf("penalty_factor must be non-negative, got %g", s.PenaltyFactor)
	}
	if s.Model.Clusters < 0 || s.Model.Rounds < 0 {
		return fmt.Errorf("model clusters and rounds must be non-negative")
	}
	return nil
}

// Penalty returns the runtime charged to failed runs.
func (s *Spec) Penalty() float64 {
	factor := s.PenaltyFactor
	if factor == 0 {
		factor = 10
	}
	return s.CutoffSec * factor
}

// Package knowledge persists a trained model (rating tables, trial
// counters, cluster centroids) so selections survive process restarts.
// Snapshots are JSON on disk; paths ending in .zst are transparently
// zstd-compressed.
package knowledge

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/librexlabs/librex/internal/rating"
	"github.com/librexlabs/librex/internal/selection"
)

// FormatVersion guards against loading snapshots written by an
// incompatible layout.
const FormatVersion = 1

// Snapshot is the on-disk form of a trained model.
type Snapshot struct {
	Version    int             `json:"version"`
	Scenario   string          `json:"scenario,omitempty"`
	Solvers    []string        `json:"solvers"`
	Centroids  [][]float64     `json:"centroids,omitempty"`
	ScalerMean []float64       `json:"scaler_mean,omitempty"`
	ScalerStd  []float64       `json:"scaler_std,omitempty"`
	Ratings    rating.Snapshot `json:"ratings"`
}

// FromModel captures a model's persistable state.
func FromModel(m *selection.Model, scenarioName string) *Snapshot {
	snap := &Snapshot{
		Version:   FormatVersion,
		Scenario:  scenarioName,
		Solvers:   m.SolverNames(),
		Centroids: m.Clusterer().Centroids(),
		Ratings:   m.Store().Snapshot(),
	}
	if mean, stddev, fitted := m.Scaler().State(); fitted {
		snap.ScalerMean = mean
		snap.ScalerStd = stddev
	}
	return snap
}

// Apply restores a snapshot into an already-constructed model. The
// model's portfolio must match the snapshot's.
func (s *Snapshot) Apply(m *selection.Model) error {
	names := m.SolverNames()
	if len(names) != len(s.Solvers) {
		return fmt.Errorf("knowledge: snapshot has %d solvers, model has %d", len(s.Solvers), len(names))
	}
	for i, name := range names {
		if s.Solvers[i] != name {
			return fmt.Errorf("knowledge: snapshot solver %d is %q, model has %q", i, s.Solvers[i], name)
		}
	}
	return m.Restore(s.Ratings, s.Centroids, s.ScalerMean, s.ScalerStd)
}

// Save writes the snapshot to path.
func Save(snap *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("knowledge: create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var w io.Writer = f
	var enc *zstd.Encoder
	if compressed(path) {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return fmt.Errorf("knowledge: zstd writer: %w", err)
		}
		w = enc
	}

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("knowledge: encode %s: %w", path, err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("knowledge: finish %s: %w", path, err)
		}
	}
	return f.Close()
}

// Load reads a snapshot from path and checks its format version.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("knowledge: zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("knowledge: decode %s: %w", path, err)
	}
	if snap.Version != FormatVersion {
		return nil, fmt.Errorf("knowledge: %s has format version %d, want %d", path, snap.Version, FormatVersion)
	}
	return &snap, nil
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

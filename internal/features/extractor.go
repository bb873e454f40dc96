// Package features turns raw instance attributes into the fixed-length
// numeric vectors the clusterer and selector operate on.
package features

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrDimensionMismatch is returned when a vector's width disagrees with
// the width the component was fitted on.
var ErrDimensionMismatch = fmt.Errorf("features: dimension mismatch")

// Extractor maps an instance attribute map onto a fixed dimension order.
// Attributes the instance lacks fill with the default value; extraction
// never fails for a well-formed instance.
type Extractor struct {
	dims         []string
	defaultValue float64
	scaler       *Scaler
}

// NewExtractor builds an extractor over the given attribute names. The
// order of dims fixes the vector layout for the life of the model.
func NewExtractor(dims []string) *Extractor {
	return &Extractor{dims: append([]string(nil), dims...)}
}

// WithDefault sets the fill value for missing attributes (zero by default).
func (e *Extractor) WithDefault(v float64) *Extractor {
	e.defaultValue = v
	return e
}

// Dimensions returns the vector width.
func (e *Extractor) Dimensions() int { return len(e.dims) }

// Extract produces the instance's feature vector, applying the fitted
// scaler when one exists. It is pure: no extractor state changes.
func (e *Extractor) Extract(attrs map[string]float64) []float64 {
	vec := make([]float64, len(e.dims))
	for i, name := range e.dims {
		if v, ok := attrs[name]; ok {
			vec[i] = v
		} else {
			vec[i] = e.defaultValue
		}
	}
	if e.scaler != nil {
		// FitScaler pins the scaler to len(e.dims)-wide vectors, so
		// Transform cannot mismatch here.
		scaled, _ := e.scaler.Transform(vec)
		return scaled
	}
	return vec
}

// FitScaler fits a standardizing scaler on the given raw vectors and
// attaches it to the extractor. This is the one mutating operation the
// extractor has. Rows whose width disagrees with the dimension list are
// rejected up front, which is what lets Extract scale unconditionally.
func (e *Extractor) FitScaler(vectors [][]float64) error {
	for i, v := range vectors {
		if len(v) != len(e.dims) {
			return fmt.Errorf("%w: row %d has %d dims, extractor has %d", ErrDimensionMismatch, i, len(v), len(e.dims))
		}
	}
	s := NewScaler()
	if err := s.Fit(vectors); err != nil {
		return err
	}
	e.scaler = s
	return nil
}

// Scaler standardizes vectors to zero mean and unit variance per
// dimension. Zero-variance dimensions pass through centered but
// unscaled.
type Scaler struct {
	mean   []float64
	stddev []float64
	fitted bool
}

// NewScaler returns an unfitted scaler.
func NewScaler() *Scaler { return &Scaler{} }

// Fitted reports whether Fit has run.
func (s *Scaler) Fitted() bool { return s.fitted }

// Fit computes per-dimension mean and standard deviation.
func (s *Scaler) Fit(vectors [][]float64) error {
	if len(vectors) == 0 {
		return fmt.Errorf("features: cannot fit scaler on empty data")
	}
	width := len(vectors[0])
	if width == 0 {
		return fmt.Errorf("features: cannot fit scaler on zero-width vectors")
	}

	column := make([]float64, len(vectors))
	s.mean = make([]float64, width)
	s.stddev = make([]float64, width)
	for j := 0; j < width; j++ {
		for i, vec := range vectors {
			if len(vec) != width {
				return fmt.Errorf("%w: row %d has %d dims, expected %d", ErrDimensionMismatch, i, len(vec), width)
			}
			column[i] = vec[j]
		}
		m, sd := stat.MeanStdDev(column, nil)
		if math.IsNaN(sd) {
			// A single sample has no spread; center only.
			sd = 0
		}
		s.mean[j], s.stddev[j] = m, sd
	}
	s.fitted = true
	return nil
}

// Transform standardizes one vector. Fails fast on width mismatch.
func (s *Scaler) Transform(vec []float64) ([]float64, error) {
	if !s.fitted {
		return nil, fmt.Errorf("features: scaler not fitted")
	}
	if len(vec) != len(s.mean) {
		return nil, fmt.Errorf("%w: got %d dims, expected %d", ErrDimensionMismatch, len(vec), len(s.mean))
	}
	out := make([]float64, len(vec))
	for j, v := range vec {
		out[j] = v - s.mean[j]
		if s.stddev[j] > 0 {
			out[j] /= s.stddev[j]
		}
	}
	return out, nil
}

// State exposes the fitted parameters for persistence.
func (s *Scaler) State() (mean, stddev []float64, fitted bool) {
	return s.mean, s.stddev, s.fitted
}

// Restore reinstates previously persisted scaler parameters.
func (s *Scaler) Restore(mean, stddev []float64) error {
	if len(mean) != len(stddev) {
		return fmt.Errorf("%w: mean has %d dims, stddev has %d", ErrDimensionMismatch, len(mean), len(stddev))
	}
	s.mean = append([]float64(nil), mean...)
	s.stddev = append([]float64(nil), stddev...)
	s.fitted = len(mean) > 0
	return nil
}

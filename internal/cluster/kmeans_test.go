package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlobs is trivially separable data around (0,0) and (10,10).
func twoBlobs() [][]float64 {
	return [][]float64{
		{0.1, 0.2}, {0.0, 0.1}, {-0.1, 0.0}, {0.2, -0.1},
		{10.1, 10.2}, {10.0, 9.9}, {9.8, 10.1}, {10.2, 10.0},
	}
}

func TestFit_SeparatesObviousBlobs(t *testing.T) {
	m := New(DefaultConfig(2))
	require.NoError(t, m.Fit(twoBlobs()))
	require.True(t, m.Fitted())

	low, err := m.Assign([]float64{0.05, 0.05})
	require.NoError(t, err)
	high, err := m.Assign([]float64{10.05, 10.05})
	require.NoError(t, err)

	assert.NotEqual(t, low, high, "the two blobs should land in different clusters")
}

func TestAssign_AlwaysInRange(t *testing.T) {
	m := New(DefaultConfig(3))
	require.NoError(t, m.Fit(twoBlobs()))

	vectors := [][]float64{
		{0, 0}, {100, -100}, {1e9, 1e9}, {-5, 3},
	}
	for _, vec := range vectors {
		c, err := m.Assign(vec)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, m.K())
	}
}

func TestAssign_LazyFitBeforeTraining(t *testing.T) {
	m := New(DefaultConfig(4))

	// Never fitted: Assign must still produce an index in [0, k).
	c, err := m.Assign([]float64{1.5, -2.0, 3.0})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c, 0)
	assert.Less(t, c, 4)
	assert.True(t, m.Fitted(), "lazy fit should leave the model fitted")

	// Deterministic: a fresh model with the same seed agrees.
	m2 := New(DefaultConfig(4))
	c2, err := m2.Assign([]float64{1.5, -2.0, 3.0})
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestAssign_NotFittedWithoutLazyFit(t *testing.T) {
	cfg := DefaultConfig(2)
	cfg.LazyFit = false
	m := New(cfg)

	_, err := m.Assign([]float64{1, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFitted))
}

func TestAssign_DimensionMismatch(t *testing.T) {
	m := New(DefaultConfig(2))
	require.NoError(t, m.Fit(twoBlobs()))

	_, err := m.Assign([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestFit_Deterministic(t *testing.T) {
	data := twoBlobs()

	a := New(DefaultConfig(2))
	require.NoError(t, a.Fit(data))
	b := New(DefaultConfig(2))
	require.NoError(t, b.Fit(data))

	assert.Equal(t, a.Centroids(), b.Centroids())
}

func TestFit_KClampedToDataSize(t *testing.T) {
	m := New(DefaultConfig(10))
	require.NoError(t, m.Fit([][]float64{{1, 1}, {2, 2}, {3, 3}}))
	assert.Equal(t, 3, m.K())
}

func TestFit_EmptyData(t *testing.T) {
	m := New(DefaultConfig(2))
	assert.Error(t, m.Fit(nil))
}

func TestFit_ConvergesOnIdenticalPoints(t *testing.T) {
	// Every point coincides, so assignments settle immediately and the
	// loop must exit early rather than run out the iteration cap.
	m := New(DefaultConfig(2))
	require.NoError(t, m.Fit([][]float64{{5, 5}, {5, 5}, {5, 5}, {5, 5}}))
	require.True(t, m.Fitted())

	c, err := m.Assign([]float64{5, 5})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, c, 0)
	assert.Less(t, c, m.K())
}

func TestRestore_RoundTrip(t *testing.T) {
	m := New(DefaultConfig(2))
	require.NoError(t, m.Fit(twoBlobs()))

	restored := New(DefaultConfig(2))
	require.NoError(t, restored.Restore(m.Centroids()))

	for _, vec := range twoBlobs() {
		want, err := m.Assign(vec)
		require.NoError(t, err)
		got, err := restored.Assign(vec)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRestore_RejectsRaggedCentroids(t *testing.T) {
	m := New(DefaultConfig(2))
	err := m.Restore([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

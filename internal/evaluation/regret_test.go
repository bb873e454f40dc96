package evaluation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegret(t *testing.T) {
	r, err := Regret(15, 10)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, r, 1e-12)

	r, err = Regret(10, 10)
	require.NoError(t, err)
	assert.Zero(t, r, "matching the oracle costs nothing")

	_, err = Regret(5, 0)
	assert.True(t, errors.Is(err, ErrZeroOracle))
}

func TestKFold_Partition(t *testing.T) {
	const n, k = 23, 5
	folds := KFold(n, k, 42)
	require.Len(t, folds, k)

	seen := make(map[int]int)
	for _, fold := range folds {
		assert.InDelta(t, n/k, len(fold), 1, "fold sizes differ by at most one")
		for _, idx := range fold {
			seen[idx]++
		}
	}
	require.Len(t, seen, n, "every index appears")
	for idx, count := range seen {
		assert.Equal(t, 1, count, "index %d must land in exactly one fold", idx)
	}
}

func TestKFold_Deterministic(t *testing.T) {
	assert.Equal(t, KFold(50, 10, 7), KFold(50, 10, 7))
	assert.NotEqual(t, KFold(50, 10, 7), KFold(50, 10, 8))
}

func TestKFold_Clamps(t *testing.T) {
	assert.Nil(t, KFold(0, 5, 1))
	assert.Len(t, KFold(3, 10, 1), 3, "k clamps to n")
	assert.Len(t, KFold(3, 0, 1), 1, "k clamps up to 1")
}

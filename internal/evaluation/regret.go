// Package evaluation drives train/test splits over recorded scenario
// data and scores selection policies against the oracle.
package evaluation

import (
	"errors"
	"math/rand"
)

// ErrZeroOracle is returned when the oracle runtime is zero and regret
// would divide by it.
var ErrZeroOracle = errors.New("evaluation: oracle runtime is zero, regret undefined")

// Regret is the relative runtime overhead of the selected solver against
// the oracle-best one:
//
//	(runtime(selected) − runtime(oracle)) / runtime(oracle)
//
// Zero exactly when the selection matches the oracle's runtime.
func Regret(selected, oracle float64) (float64, error) {
	if oracle == 0 {
		return 0, ErrZeroOracle
	}
	return (selected - oracle) / oracle, nil
}

// KFold deterministically partitions n indices into k shuffled folds.
// Every index lands in exactly one fold; fold sizes differ by at most
// one. k is clamped to [1, n].
func KFold(n, k int, seed int64) [][]int {
	if n <= 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, idx := range perm {
		f := i % k
		folds[f] = append(folds[f], idx)
	}
	return folds
}

package dataset

import (
	"errors"
	"fmt"

	"github.com/valyala/fastrand"
)

var ErrEmptySplit = errors.New("split leaves one side empty")

// Split shuffles row indexes with a seeded generator and cuts off ratio of
// them as the test set. The same seed always yields the same split.
func Split(n int, ratio float64, seed uint32) (train, test []int, err error) {
	if ratio < 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v must be in [0, 1)", ratio)
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if ratio == 0 {
		return idx, nil, nil
	}

	var rng fastrand.RNG
	// a zero state would be replaced by a time based one
	if seed == 0 {
		seed = 1
	}
	rng.Seed(seed)
	for i := n - 1; i > 0; i-- {
		j := int(rng.Uint32n(uint32(i + 1)))
		idx[i], idx[j] = idx[j], idx[i]
	}

	testLen := int(float64(n) * ratio)
	if testLen == 0 || testLen == n {
		return nil, nil, fmt.Errorf("test ratio %v for %d rows: %w", ratio, n, ErrEmptySplit)
	}
	return idx[testLen:], idx[:testLen], nil
}

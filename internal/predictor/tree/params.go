package tree

import (
	"fmt"
	"math"
)

type Criterion string

const (
	CriterionGini    Criterion = "gini"
	CriterionEntropy Criterion = "entropy"
)

// Params are the fitting knobs. Field tags let the same struct be filled from
// the environment and from a TOML overlay file.
type Params struct {
	Criterion       Criterion `envconfig:"DTS_TREE_CRITERION" default:"gini" toml:"criterion"`
	MaxDepth        int       `envconfig:"DTS_TREE_MAX_DEPTH" default:"0" toml:"max_depth"`
	MinSamplesSplit int       `envconfig:"DTS_TREE_MIN_SAMPLES_SPLIT" default:"2" toml:"min_samples_split"`
	MinSamplesLeaf  int       `envconfig:"DTS_TREE_MIN_SAMPLES_LEAF" default:"1" toml:"min_samples_leaf"`
}

func DefaultParams() Params {
	return Params{
		Criterion:       CriterionGini,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (p Params) Validate() error {
	if _, err := impurityFor(p.Criterion); err != nil {
		return err
	}
	if p.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative, got %d", p.MaxDepth)
	}
	if p.MinSamplesSplit < 2 {
		return fmt.Errorf("min samples split must be at least 2, got %d", p.MinSamplesSplit)
	}
	if p.MinSamplesLeaf < 1 {
		return fmt.Errorf("min samples leaf must be at least 1, got %d", p.MinSamplesLeaf)
	}
	return nil
}

type impurityFn func(counts []int, n int) float64

func impurityFor(c Criterion) (impurityFn, error) {
	switch c {
	case CriterionGini:
		return gini, nil
	case CriterionEntropy:
		return entropy, nil
	default:
		return nil, fmt.Errorf("unknown split criterion: %q", c)
	}
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		impurity -= p * p
	}
	return impurity
}

func entropy(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

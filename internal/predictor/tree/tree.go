// Package tree fits and evaluates CART decision-tree classifiers over float64
// features and dense integer class codes.
package tree

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNotFitted    = errors.New("tree is not fitted")
	ErrFeatureCount = errors.New("feature count does not match the tree")
	ErrShape        = errors.New("features and labels have inconsistent shapes")
	ErrLabelRange   = errors.New("class code out of range")
	ErrInvalidTree  = errors.New("invalid tree structure")
)

// Node is one entry of the flat, pre-ordered node table. Children always come
// after their parent. Leaf nodes have Feature, Left and Right set to -1.
type Node struct {
	Feature   int32
	Threshold float64
	Left      int32
	Right     int32
	Class     int32
	Leaf      bool
	Samples   int32
	Impurity  float64
}

type Classifier struct {
	params   Params
	features int
	classes  int
	nodes    []Node
}

func New(params Params) (*Classifier, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{params: params}, nil
}

// FromNodes rebuilds a fitted classifier from a node table, checking that the
// table describes a well formed tree.
func FromNodes(params Params, features, classes int, nodes []Node) (*Classifier, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidTree)
	}
	if features <= 0 || classes <= 0 || len(nodes) == 0 {
		return nil, fmt.Errorf("%d features, %d classes, %d nodes: %w", features, classes, len(nodes), ErrInvalidTree)
	}
	for i, n := range nodes {
		if n.Class < 0 || int(n.Class) >= classes {
			return nil, fmt.Errorf("node %d class %d: %w", i, n.Class, ErrInvalidTree)
		}
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || int(n.Feature) >= features {
			return nil, fmt.Errorf("node %d feature %d: %w", i, n.Feature, ErrInvalidTree)
		}
		if int(n.Left) <= i || int(n.Right) <= i || int(n.Left) >= len(nodes) || int(n.Right) >= len(nodes) {
			return nil, fmt.Errorf("node %d children %d/%d: %w", i, n.Left, n.Right, ErrInvalidTree)
		}
		if math.IsNaN(n.Threshold) {
			return nil, fmt.Errorf("node %d threshold is NaN: %w", i, ErrInvalidTree)
		}
	}
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return &Classifier{params: params, features: features, classes: classes, nodes: out}, nil
}

func (c *Classifier) Params() Params {
	return c.params
}

func (c *Classifier) Features() int {
	return c.features
}

func (c *Classifier) Classes() int {
	return c.classes
}

// Nodes returns a copy of the node table.
func (c *Classifier) Nodes() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Depth is the number of edges on the longest root to leaf path.
func (c *Classifier) Depth() int {
	if len(c.nodes) == 0 {
		return 0
	}
	var walk func(idx int32) int
	walk = func(idx int32) int {
		n := c.nodes[idx]
		if n.Leaf {
			return 0
		}
		l, r := walk(n.Left), walk(n.Right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

func (c *Classifier) Leaves() int {
	var n int
	for i := range c.nodes {
		if c.nodes[i].Leaf {
			n++
		}
	}
	return n
}

// Fit grows the tree on x with class codes y in [0, classes). A previous fit
// is discarded.
func (c *Classifier) Fit(x [][]float64, y []int, classes int) error {
	if len(x) == 0 {
		return fmt.Errorf("no rows: %w", ErrShape)
	}
	if len(x) != len(y) {
		return fmt.Errorf("%d rows, %d labels: %w", len(x), len(y), ErrShape)
	}
	if classes <= 0 {
		return fmt.Errorf("%d classes: %w", classes, ErrLabelRange)
	}
	width := len(x[0])
	if width == 0 {
		return fmt.Errorf("no feature columns: %w", ErrShape)
	}
	for i := range x {
		if len(x[i]) != width {
			return fmt.Errorf("row %d has %d features, expected %d: %w", i, len(x[i]), width, ErrShape)
		}
		for j, v := range x[i] {
			if math.IsNaN(v) {
				return fmt.Errorf("row %d feature %d is NaN: %w", i, j, ErrShape)
			}
		}
		if y[i] < 0 || y[i] >= classes {
			return fmt.Errorf("row %d class %d: %w", i, y[i], ErrLabelRange)
		}
	}
	impurity, err := impurityFor(c.params.Criterion)
	if err != nil {
		return err
	}

	b := &builder{
		x:        x,
		y:        y,
		classes:  classes,
		params:   c.params,
		impurity: impurity,
	}
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	c.features = width
	c.classes = classes
	c.nodes = b.nodes
	return nil
}

// Predict walks the tree for one row. Values equal to a threshold go left.
func (c *Classifier) Predict(row []float64) (int, error) {
	if len(c.nodes) == 0 {
		return 0, ErrNotFitted
	}
	if len(row) != c.features {
		return 0, fmt.Errorf("got %d, expected %d: %w", len(row), c.features, ErrFeatureCount)
	}
	idx := int32(0)
	for {
		n := c.nodes[idx]
		if n.Leaf {
			return int(n.Class), nil
		}
		if row[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

type builder struct {
	x        [][]float64
	y        []int
	classes  int
	params   Params
	impurity impurityFn
	nodes    []Node
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (b *builder) build(idx []int, depth int) int32 {
	counts := b.count(idx)
	imp := b.impurity(counts, len(idx))
	self := int32(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Class:    int32(majority(counts)),
		Leaf:     true,
		Samples:  int32(len(idx)),
		Impurity: imp,
	})

	if imp == 0 || len(idx) < b.params.MinSamplesSplit || (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return self
	}
	best, ok := b.bestSplit(idx, counts)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	n := &b.nodes[self]
	n.Leaf = false
	n.Feature = int32(best.feature)
	n.Threshold = best.threshold
	n.Left = l
	n.Right = r
	return self
}

// bestSplit tries every midpoint between distinct consecutive values of every
// feature. Ties keep the first candidate found, so the result only depends on
// the input order.
func (b *builder) bestSplit(idx []int, counts []int) (split, bool) {
	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	best := split{feature: -1, score: math.Inf(1)}
	sorted := make([]int, n)
	leftCounts := make([]int, b.classes)
	rightCounts := make([]int, b.classes)

	for f := 0; f < len(b.x[idx[0]]); f++ {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][f] < b.x[sorted[j]][f]
		})
		for k := range leftCounts {
			leftCounts[k] = 0
		}
		copy(rightCounts, counts)

		for k := 0; k < n-1; k++ {
			cls := b.y[sorted[k]]
			leftCounts[cls]++
			rightCounts[cls]--

			lo, hi := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			nl, nr := k+1, n-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			score := (float64(nl)*b.impurity(leftCounts, nl) + float64(nr)*b.impurity(rightCounts, nr)) / float64(n)
			if score < best.score {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}
				best = split{feature: f, threshold: threshold, score: score}
			}
		}
	}
	return best, best.feature >= 0
}

func (b *builder) count(idx []int) []int {
	counts := make([]int, b.classes)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

// majority breaks ties towards the lowest class code.
func majority(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

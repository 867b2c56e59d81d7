package tree

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/go-sod/dtree/internal/dataset"
)

func loadIris(t *testing.T) ([][]float64, []int, *dataset.LabelSet) {
	t.Helper()
	ds, err := dataset.ReadFile(filepath.Join("..", "..", "dataset", "testdata", "iris.csv"), dataset.WithFeatureCount(4))
	if err != nil {
		t.Fatalf("unable to read iris: %v", err)
	}
	labels, err := dataset.DeriveLabelSet(ds.Labels)
	if err != nil {
		t.Fatalf("unable to derive labels: %v", err)
	}
	y, err := labels.EncodeAll(ds.Labels)
	if err != nil {
		t.Fatalf("unable to encode labels: %v", err)
	}
	return ds.Features, y, labels
}

func mustFit(t *testing.T, params Params, x [][]float64, y []int, classes int) *Classifier {
	t.Helper()
	c, err := New(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Fit(x, y, classes); err != nil {
		t.Fatalf("unexpected fit error: %v", err)
	}
	return c
}

func TestFitPredictSeparable(t *testing.T) {
	x := [][]float64{
		{0.1, 0.2},
		{0.2, 0.1},
		{0.9, 0.8},
		{0.8, 0.9},
	}
	y := []int{0, 0, 1, 1}
	c := mustFit(t, DefaultParams(), x, y, 2)

	tests := []struct {
		name     string
		row      []float64
		expected int
	}{
		{name: "low", row: []float64{0.15, 0.15}, expected: 0},
		{name: "high", row: []float64{0.85, 0.85}, expected: 1},
		{name: "training_row", row: []float64{0.2, 0.1}, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := c.Predict(test.row)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.expected {
				t.Errorf("Predict(%v) got: %d, expected: %d", test.row, got, test.expected)
			}
		})
	}
	if c.Depth() != 1 || c.Leaves() != 2 {
		t.Errorf("expected a single split, got depth %d with %d leaves:\n%s", c.Depth(), c.Leaves(), spew.Sdump(c.Nodes()))
	}
}

func TestFitIris(t *testing.T) {
	x, y, labels := loadIris(t)
	for _, criterion := range []Criterion{CriterionGini, CriterionEntropy} {
		t.Run(string(criterion), func(t *testing.T) {
			params := DefaultParams()
			params.Criterion = criterion
			c := mustFit(t, params, x, y, labels.Len())

			var correct int
			for i := range x {
				got, err := c.Predict(x[i])
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got == y[i] {
					correct++
				}
			}
			if acc := float64(correct) / float64(len(x)); acc < 0.97 {
				t.Errorf("training accuracy got: %.3f, expected at least 0.97", acc)
			}

			root := c.Nodes()[0]
			if root.Leaf || root.Feature != 2 || math.Abs(root.Threshold-2.45) > 1e-9 {
				t.Errorf("root must split petal length at 2.45, got:\n%s", spew.Sdump(root))
			}
			left := c.Nodes()[root.Left]
			if !left.Leaf || left.Class != 0 || left.Samples != 50 {
				t.Errorf("left child must be the pure setosa leaf, got:\n%s", spew.Sdump(left))
			}

			got, err := c.Predict([]float64{5.1, 3.5, 1.4, 0.2})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if label, _ := labels.Decode(got); label != "Iris-setosa" {
				t.Errorf("prediction got: %q, expected: %q", label, "Iris-setosa")
			}
		})
	}
}

func TestFitDeterministic(t *testing.T) {
	x, y, labels := loadIris(t)
	a := mustFit(t, DefaultParams(), x, y, labels.Len())
	b := mustFit(t, DefaultParams(), x, y, labels.Len())
	if !reflect.DeepEqual(a.Nodes(), b.Nodes()) {
		t.Errorf("two fits on the same data differ:\n%s\n%s", spew.Sdump(a.Nodes()), spew.Sdump(b.Nodes()))
	}
}

func TestParamsLimits(t *testing.T) {
	x, y, labels := loadIris(t)

	t.Run("max_depth", func(t *testing.T) {
		params := DefaultParams()
		params.MaxDepth = 2
		c := mustFit(t, params, x, y, labels.Len())
		if c.Depth() > 2 {
			t.Errorf("depth got: %d, expected at most 2", c.Depth())
		}
	})

	t.Run("min_samples_leaf", func(t *testing.T) {
		params := DefaultParams()
		params.MinSamplesLeaf = 10
		c := mustFit(t, params, x, y, labels.Len())
		for i, n := range c.Nodes() {
			if n.Leaf && n.Samples < 10 {
				t.Errorf("leaf %d has %d samples, expected at least 10", i, n.Samples)
			}
		}
	})

	t.Run("min_samples_split", func(t *testing.T) {
		params := DefaultParams()
		params.MinSamplesSplit = 200
		c := mustFit(t, params, x, y, labels.Len())
		if len(c.Nodes()) != 1 {
			t.Errorf("a node smaller than min samples split must stay a leaf, got %d nodes", len(c.Nodes()))
		}
	})
}

func TestImpurity(t *testing.T) {
	tests := []struct {
		name     string
		fn       impurityFn
		counts   []int
		expected float64
	}{
		{name: "gini_pure", fn: gini, counts: []int{10, 0}, expected: 0},
		{name: "gini_even", fn: gini, counts: []int{5, 5}, expected: 0.5},
		{name: "gini_three", fn: gini, counts: []int{50, 50, 50}, expected: 2.0 / 3.0},
		{name: "entropy_pure", fn: entropy, counts: []int{0, 7}, expected: 0},
		{name: "entropy_even", fn: entropy, counts: []int{4, 4}, expected: 1},
		{name: "entropy_four", fn: entropy, counts: []int{1, 1, 1, 1}, expected: 2},
		{name: "empty", fn: gini, counts: []int{0, 0}, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			n := 0
			for _, c := range test.counts {
				n += c
			}
			if got := test.fn(test.counts, n); math.Abs(got-test.expected) > 1e-9 {
				t.Errorf("impurity got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestFitErrors(t *testing.T) {
	tests := []struct {
		name        string
		x           [][]float64
		y           []int
		classes     int
		expectedErr error
	}{
		{name: "no_rows", x: nil, y: nil, classes: 2, expectedErr: ErrShape},
		{name: "label_mismatch", x: [][]float64{{1}, {2}}, y: []int{0}, classes: 2, expectedErr: ErrShape},
		{name: "ragged", x: [][]float64{{1, 2}, {2}}, y: []int{0, 1}, classes: 2, expectedErr: ErrShape},
		{name: "nan", x: [][]float64{{1}, {math.NaN()}}, y: []int{0, 1}, classes: 2, expectedErr: ErrShape},
		{name: "no_columns", x: [][]float64{{}, {}}, y: []int{0, 1}, classes: 2, expectedErr: ErrShape},
		{name: "negative_class", x: [][]float64{{1}, {2}}, y: []int{0, -1}, classes: 2, expectedErr: ErrLabelRange},
		{name: "class_too_big", x: [][]float64{{1}, {2}}, y: []int{0, 2}, classes: 2, expectedErr: ErrLabelRange},
		{name: "no_classes", x: [][]float64{{1}}, y: []int{0}, classes: 0, expectedErr: ErrLabelRange},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := New(DefaultParams())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := c.Fit(test.x, test.y, test.classes); !errors.Is(err, test.expectedErr) {
				t.Errorf("error got: %v, expected: %v", err, test.expectedErr)
			}
		})
	}
}

func TestPredictErrors(t *testing.T) {
	c, err := New(DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Predict([]float64{1}); !errors.Is(err, ErrNotFitted) {
		t.Errorf("error got: %v, expected: %v", err, ErrNotFitted)
	}

	c = mustFit(t, DefaultParams(), [][]float64{{1, 1}, {2, 2}}, []int{0, 1}, 2)
	for _, row := range [][]float64{{1}, {1, 2, 3}, nil} {
		if _, err := c.Predict(row); !errors.Is(err, ErrFeatureCount) {
			t.Errorf("Predict(%v) error got: %v, expected: %v", row, err, ErrFeatureCount)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
		valid  bool
	}{
		{name: "default", modify: func(p *Params) {}, valid: true},
		{name: "entropy", modify: func(p *Params) { p.Criterion = CriterionEntropy }, valid: true},
		{name: "unknown_criterion", modify: func(p *Params) { p.Criterion = "mse" }},
		{name: "negative_depth", modify: func(p *Params) { p.MaxDepth = -1 }},
		{name: "small_split", modify: func(p *Params) { p.MinSamplesSplit = 1 }},
		{name: "zero_leaf", modify: func(p *Params) { p.MinSamplesLeaf = 0 }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := DefaultParams()
			test.modify(&p)
			err := p.Validate()
			if test.valid && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.valid && err == nil {
				t.Errorf("params %+v must be rejected", p)
			}
		})
	}
}

func TestFromNodes(t *testing.T) {
	valid := []Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, Class: 0, Samples: 2},
		{Feature: -1, Left: -1, Right: -1, Class: 0, Leaf: true, Samples: 1},
		{Feature: -1, Left: -1, Right: -1, Class: 1, Leaf: true, Samples: 1},
	}
	c, err := FromNodes(DefaultParams(), 1, 2, valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := c.Predict([]float64{0.7}); got != 1 {
		t.Errorf("Predict got: %d, expected: 1", got)
	}

	tests := []struct {
		name   string
		modify func(nodes []Node) []Node
	}{
		{name: "empty", modify: func(nodes []Node) []Node { return nil }},
		{name: "class_out_of_range", modify: func(nodes []Node) []Node { nodes[2].Class = 5; return nodes }},
		{name: "feature_out_of_range", modify: func(nodes []Node) []Node { nodes[0].Feature = 3; return nodes }},
		{name: "self_loop", modify: func(nodes []Node) []Node { nodes[0].Left = 0; return nodes }},
		{name: "child_out_of_range", modify: func(nodes []Node) []Node { nodes[0].Right = 9; return nodes }},
		{name: "nan_threshold", modify: func(nodes []Node) []Node { nodes[0].Threshold = math.NaN(); return nodes }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			nodes := make([]Node, len(valid))
			copy(nodes, valid)
			if _, err := FromNodes(DefaultParams(), 1, 2, test.modify(nodes)); !errors.Is(err, ErrInvalidTree) {
				t.Errorf("error got: %v, expected: %v", err, ErrInvalidTree)
			}
		})
	}
}

func TestExport(t *testing.T) {
	x, y, labels := loadIris(t)
	params := DefaultParams()
	params.MaxDepth = 2
	c := mustFit(t, params, x, y, labels.Len())
	names := Names{
		Features: []string{"sepal_length", "sepal_width", "petal_length", "petal_width"},
		Classes:  labels.Labels(),
	}

	var text bytes.Buffer
	if err := c.Export(&text, FormatText, names); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(text.String(), "|--- petal_length <= 2.45\n|   |--- class: Iris-setosa") {
		t.Errorf("unexpected text diagram:\n%s", text.String())
	}

	var dot bytes.Buffer
	if err := c.Export(&dot, FormatDOT, names); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := dot.String()
	if !strings.HasPrefix(out, "digraph Tree {") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("unexpected dot diagram:\n%s", out)
	}
	if !strings.Contains(out, `0 -> 1 [headlabel="True"] ;`) {
		t.Errorf("dot diagram lacks the root edge:\n%s", out)
	}

	if err := c.Export(&dot, "svg", names); err == nil {
		t.Errorf("an unknown format must be rejected")
	}
	unfitted, _ := New(DefaultParams())
	if err := unfitted.Export(&dot, FormatText, names); !errors.Is(err, ErrNotFitted) {
		t.Errorf("error got: %v, expected: %v", err, ErrNotFitted)
	}
}

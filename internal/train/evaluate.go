package train

import (
	"fmt"

	"github.com/go-sod/dtree/internal/dataset"
	"github.com/go-sod/dtree/internal/predictor/tree"
)

// Evaluation is the outcome of the held-out check. Confusion is indexed by
// [actual][predicted] label code.
type Evaluation struct {
	TrainRows int
	TestRows  int
	Accuracy  float64
	Confusion [][]int
}

// evaluate fits a throwaway tree on the train split and scores it on the
// test split. The returned tree is never persisted.
func evaluate(ds *dataset.Dataset, y []int, classes int, params tree.Params, ratio float64, seed uint32) (*Evaluation, error) {
	trainIdx, testIdx, err := dataset.Split(ds.Len(), ratio, seed)
	if err != nil {
		return nil, err
	}

	x := ds.Subset(trainIdx).Features
	ty := make([]int, len(trainIdx))
	for i, row := range trainIdx {
		ty[i] = y[row]
	}

	clf, err := tree.New(params)
	if err != nil {
		return nil, err
	}
	if err := clf.Fit(x, ty, classes); err != nil {
		return nil, fmt.Errorf("fit train split: %w", err)
	}

	ev := &Evaluation{
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		Confusion: make([][]int, classes),
	}
	for i := range ev.Confusion {
		ev.Confusion[i] = make([]int, classes)
	}

	var correct int
	for _, row := range testIdx {
		got, err := clf.Predict(ds.Features[row])
		if err != nil {
			return nil, fmt.Errorf("predict row %d: %w", row, err)
		}
		ev.Confusion[y[row]][got]++
		if got == y[row] {
			correct++
		}
	}
	ev.Accuracy = float64(correct) / float64(len(testIdx))
	return ev, nil
}

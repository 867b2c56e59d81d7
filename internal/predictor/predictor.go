package predictor

import "errors"

type AlgType string

const AlgTypeDecisionTree AlgType = "DECISION_TREE"

var ErrDimMismatch = errors.New("vector dimensions do not match the model")

type ProvideFn func() (Predictor, error)

type Vector interface {
	Dimensions() int
	Points() []float64
}

// Predictor classifies a single feature vector. Implementations are read-only
// after construction and safe for concurrent use.
type Predictor interface {
	// Features is the vector width the model was trained on.
	Features() int
	Predict(vec Vector) (*Conclusion, error)
}

type Conclusion struct {
	ClassID int
	Label   string
}

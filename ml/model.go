package ml

import "errors"

var (
	ErrEmptyDataset     = errors.New("dataset is empty")
	ErrSizeMismatch     = errors.New("features and labels size mismatch")
	ErrNotTrained       = errors.New("model not trained")
	ErrFeatureMismatch  = errors.New("feature vector does not match model features")
	ErrUnsupportedModel = errors.New("unsupported model type")
	ErrSingularMatrix   = errors.New("design matrix is singular")
	ErrMissingTarget    = errors.New("dataset has no quality column")
)

// Predictor maps one ordered feature vector to a predicted quality score.
// Implementations must be safe for concurrent use once trained or loaded.
type Predictor interface {
	Predict(features []float64) (float64, error)
}

type MLModel interface {
	Predictor
	Train(features [][]float64, labels []float64) error
	Save(path string) error
	Load(path string) error
}

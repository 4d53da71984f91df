package ml

import (
	"fmt"
)

func LoadModel(modelType, path string) (MLModel, error) {
	switch modelType {
	case LinearRegressionType, "":
		model := NewLinearRegression()
		if err := model.Load(path); err != nil {
			return nil, err
		}
		return model, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}

// NewModel returns an untrained model of the given type.
func NewModel(modelType string) (MLModel, error) {
	switch modelType {
	case LinearRegressionType, "":
		return NewLinearRegression(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}

type featureNamer interface {
	FeatureNames() []string
}

// CheckFeatureNames verifies that a model was fit against the canonical
// feature order. Models that do not record their feature names only have
// their width checked at predict time.
func CheckFeatureNames(model Predictor) error {
	named, ok := model.(featureNamer)
	if !ok {
		return nil
	}
	names := named.FeatureNames()
	if len(names) == 0 {
		return nil
	}
	expected := FeatureNames()
	if len(names) != len(expected) {
		return fmt.Errorf("%w: model has %d features, expected %d", ErrFeatureMismatch, len(names), len(expected))
	}
	for i, name := range expected {
		if names[i] != name {
			return fmt.Errorf("%w: position %d is %q, expected %q", ErrFeatureMismatch, i, names[i], name)
		}
	}
	return nil
}

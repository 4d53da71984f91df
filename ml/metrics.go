package ml

import (
	"encoding/json"
	"math"
	"os"

	"gonum.org/v1/gonum/stat"
)

// Metrics is the evaluation record written after each training run.
type Metrics struct {
	MSE     float64 `json:"MSE"`
	R2Score float64 `json:"R2_Score"`
}

func MeanSquaredError(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(yTrue) != len(yPred) {
		return 0, ErrSizeMismatch
	}
	squared := make([]float64, len(yTrue))
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		squared[i] = diff * diff
	}
	return stat.Mean(squared, nil), nil
}

// R2Score is the coefficient of determination. A constant target scores 1
// for an exact fit and 0 otherwise.
func R2Score(yTrue, yPred []float64) (float64, error) {
	if len(yTrue) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(yTrue) != len(yPred) {
		return 0, ErrSizeMismatch
	}
	if len(yTrue) < 2 || stat.Variance(yTrue, nil) == 0 {
		for i := range yTrue {
			if yTrue[i] != yPred[i] {
				return 0, nil
			}
		}
		return 1, nil
	}
	score := stat.RSquaredFrom(yPred, yTrue, nil)
	if math.IsNaN(score) {
		return 0, nil
	}
	return score, nil
}

// Evaluate scores a model against held-out rows.
func Evaluate(model Predictor, features [][]float64, labels []float64) (Metrics, error) {
	if len(features) != len(labels) {
		return Metrics{}, ErrSizeMismatch
	}
	predictions := make([]float64, len(features))
	for i, row := range features {
		prediction, err := model.Predict(row)
		if err != nil {
			return Metrics{}, err
		}
		predictions[i] = prediction
	}
	mse, err := MeanSquaredError(labels, predictions)
	if err != nil {
		return Metrics{}, err
	}
	r2, err := R2Score(labels, predictions)
	if err != nil {
		return Metrics{}, err
	}
	return Metrics{MSE: mse, R2Score: r2}, nil
}

func WriteMetrics(path string, metrics Metrics) error {
	payload, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

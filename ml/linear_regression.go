package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const LinearRegressionType = "linear_regression"

// LinearRegression is an ordinary least squares model with an intercept.
type LinearRegression struct {
	featureNames []string
	coefficients []float64
	intercept    float64
	trainRows    int
	trainedAt    time.Time
}

// linearArtifact is the persisted form of a LinearRegression.
type linearArtifact struct {
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	TrainRows    int       `json:"train_rows"`
	TrainedAt    time.Time `json:"trained_at"`
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

// Train fits the coefficients on column-centered data so the intercept is
// recovered as mean(y) - coef·mean(X).
func (lr *LinearRegression) Train(features [][]float64, labels []float64) error {
	if len(features) == 0 || len(labels) == 0 {
		return ErrEmptyDataset
	}
	if len(features) != len(labels) {
		return ErrSizeMismatch
	}
	rows, cols := len(features), len(features[0])
	if cols == 0 {
		return ErrFeatureMismatch
	}
	if rows <= cols {
		return fmt.Errorf("need more than %d rows to fit %d features, got %d", cols, cols, rows)
	}

	means := make([]float64, cols)
	column := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i, row := range features {
			if len(row) != cols {
				return fmt.Errorf("row %d: %w", i, ErrFeatureMismatch)
			}
			column[i] = row[j]
		}
		means[j] = stat.Mean(column, nil)
	}
	labelMean := stat.Mean(labels, nil)

	x := mat.NewDense(rows, cols, nil)
	y := mat.NewVecDense(rows, nil)
	for i, row := range features {
		for j, value := range row {
			x.Set(i, j, value-means[j])
		}
		y.SetVec(i, labels[i]-labelMean)
	}

	var qr mat.QR
	qr.Factorize(x)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return fmt.Errorf("%w (condition number %g)", ErrSingularMatrix, float64(cond))
		}
		return err
	}

	coefficients := make([]float64, cols)
	intercept := labelMean
	for j := range coefficients {
		coefficients[j] = beta.AtVec(j)
		intercept -= coefficients[j] * means[j]
	}

	lr.coefficients = coefficients
	lr.intercept = intercept
	lr.trainRows = rows
	lr.trainedAt = time.Now().UTC()
	if lr.featureNames == nil && cols == FeatureCount {
		lr.featureNames = FeatureNames()
	}
	return nil
}

func (lr *LinearRegression) Predict(features []float64) (float64, error) {
	if len(lr.coefficients) == 0 {
		return 0, ErrNotTrained
	}
	if len(features) != len(lr.coefficients) {
		return 0, fmt.Errorf("%w: expected %d values, got %d", ErrFeatureMismatch, len(lr.coefficients), len(features))
	}
	prediction := lr.intercept
	for i, coeff := range lr.coefficients {
		prediction += coeff * features[i]
	}
	return prediction, nil
}

func (lr *LinearRegression) PredictBatch(features [][]float64) ([]float64, error) {
	predictions := make([]float64, len(features))
	for i, row := range features {
		prediction, err := lr.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		predictions[i] = prediction
	}
	return predictions, nil
}

// SetFeatureNames records the column names the model is fit against.
func (lr *LinearRegression) SetFeatureNames(names []string) {
	lr.featureNames = append([]string(nil), names...)
}

func (lr *LinearRegression) FeatureNames() []string {
	return append([]string(nil), lr.featureNames...)
}

func (lr *LinearRegression) Coefficients() []float64 {
	return append([]float64(nil), lr.coefficients...)
}

func (lr *LinearRegression) Intercept() float64 {
	return lr.intercept
}

func (lr *LinearRegression) TrainRows() int {
	return lr.trainRows
}

func (lr *LinearRegression) Save(path string) error {
	if len(lr.coefficients) == 0 {
		return ErrNotTrained
	}
	payload, err := json.MarshalIndent(linearArtifact{
		ModelType:    LinearRegressionType,
		FeatureNames: lr.featureNames,
		Coefficients: lr.coefficients,
		Intercept:    lr.intercept,
		TrainRows:    lr.trainRows,
		TrainedAt:    lr.trainedAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (lr *LinearRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var artifact linearArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return fmt.Errorf("decode model artifact: %w", err)
	}
	if artifact.ModelType != LinearRegressionType {
		return fmt.Errorf("%w: artifact holds %q", ErrUnsupportedModel, artifact.ModelType)
	}
	if len(artifact.Coefficients) == 0 {
		return ErrNotTrained
	}
	if len(artifact.FeatureNames) != 0 && len(artifact.FeatureNames) != len(artifact.Coefficients) {
		return fmt.Errorf("%w: %d names for %d coefficients", ErrFeatureMismatch, len(artifact.FeatureNames), len(artifact.Coefficients))
	}
	lr.featureNames = artifact.FeatureNames
	lr.coefficients = artifact.Coefficients
	lr.intercept = artifact.Intercept
	lr.trainRows = artifact.TrainRows
	lr.trainedAt = artifact.TrainedAt
	return nil
}

package ml

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FeatureStats summarises one feature column.
type FeatureStats struct {
	Name string  `json:"name"`
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
}

// DescribeFeatures computes per-column statistics over feature vectors laid
// out in FeatureNames order.
func DescribeFeatures(features [][]float64) ([]FeatureStats, error) {
	if len(features) == 0 {
		return nil, ErrEmptyDataset
	}
	names := FeatureNames()
	width := len(features[0])
	column := make([]float64, len(features))
	stats := make([]FeatureStats, width)
	for j := 0; j < width; j++ {
		for i, row := range features {
			if len(row) != width {
				return nil, fmt.Errorf("row %d: %w", i, ErrFeatureMismatch)
			}
			column[i] = row[j]
		}
		name := fmt.Sprintf("feature_%d", j)
		if width == len(names) {
			name = names[j]
		}
		stats[j] = FeatureStats{
			Name: name,
			Min:  floats.Min(column),
			Mean: stat.Mean(column, nil),
			Max:  floats.Max(column),
		}
	}
	return stats, nil
}

// MeanVector returns the column means as a feature vector.
func MeanVector(stats []FeatureStats) []float64 {
	vector := make([]float64, len(stats))
	for i, s := range stats {
		vector[i] = s.Mean
	}
	return vector
}

func LabelRange(labels []float64) (min, max float64, err error) {
	if len(labels) == 0 {
		return 0, 0, ErrEmptyDataset
	}
	return floats.Min(labels), floats.Max(labels), nil
}

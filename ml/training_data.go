package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/jszwec/csvutil"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DatasetDelimiter is the field separator of the wine quality CSV exports.
const DatasetDelimiter = ';'

type Dataset struct {
	Samples []WineSample
}

func (d *Dataset) Len() int {
	return len(d.Samples)
}

func (d *Dataset) Features() [][]float64 {
	features := make([][]float64, len(d.Samples))
	for i, sample := range d.Samples {
		features[i] = FeatureVector(sample.WineFeatures)
	}
	return features
}

func (d *Dataset) Labels() []float64 {
	labels := make([]float64, len(d.Samples))
	for i, sample := range d.Samples {
		labels[i] = sample.Quality
	}
	return labels
}

func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dataset, err := LoadDatasetFrom(file, DatasetDelimiter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dataset, nil
}

// LoadDatasetFrom decodes a delimited dataset with a header row. Columns are
// matched by name, so their order in the file does not matter; unknown
// columns are ignored.
func LoadDatasetFrom(r io.Reader, comma rune) (*Dataset, error) {
	// Spreadsheet exports often carry a byte order mark in front of the header.
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.Comma = comma
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(&strictReader{reader: reader})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	dec.DisallowMissingColumns = true

	samples := make([]WineSample, 0)
	for row := 1; ; row++ {
		var sample WineSample
		err := dec.Decode(&sample)
		if err == io.EOF {
			break
		}
		if err != nil {
			var missing *csvutil.MissingColumnsError
			if errors.As(err, &missing) {
				for _, column := range missing.Columns {
					if column == TargetColumn {
						return nil, fmt.Errorf("%w: %v", ErrMissingTarget, err)
					}
				}
				return nil, err
			}
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		samples = append(samples, sample)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyDataset
	}
	return &Dataset{Samples: samples}, nil
}

// strictReader rejects empty cells, which csvutil would otherwise decode
// as zero.
type strictReader struct {
	reader *csv.Reader
	header []string
}

func (s *strictReader) Read() ([]string, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, err
	}
	if s.header == nil {
		s.header = record
		return record, nil
	}
	for i, value := range record {
		if value == "" {
			line, _ := s.reader.FieldPos(i)
			return nil, fmt.Errorf("line %d: column %q is empty", line, s.header[i])
		}
	}
	return record, nil
}

// TrainTestSplit shuffles the rows with a seeded source and holds out
// ceil(n*testRatio) of them for evaluation. The same inputs and seed always
// produce the same partition.
func TrainTestSplit(features [][]float64, labels []float64, testRatio float64, seed int64) (trainX [][]float64, trainY []float64, testX [][]float64, testY []float64, err error) {
	if len(features) != len(labels) {
		return nil, nil, nil, nil, ErrSizeMismatch
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test ratio must be in (0, 1), got %g", testRatio)
	}
	total := len(features)
	testSize := int(math.Ceil(float64(total) * testRatio))
	trainSize := total - testSize
	if testSize == 0 || trainSize <= 0 {
		return nil, nil, nil, nil, fmt.Errorf("cannot split %d rows with test ratio %g", total, testRatio)
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(total)

	trainX = make([][]float64, 0, trainSize)
	trainY = make([]float64, 0, trainSize)
	testX = make([][]float64, 0, testSize)
	testY = make([]float64, 0, testSize)
	for i, idx := range indices {
		if i < trainSize {
			trainX = append(trainX, features[idx])
			trainY = append(trainY, labels[idx])
		} else {
			testX = append(testX, features[idx])
			testY = append(testY, labels[idx])
		}
	}
	return trainX, trainY, testX, testY, nil
}

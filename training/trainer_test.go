package training

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"winequality/db"
	"winequality/ml"
	"winequality/monitoring"
)

// writeDataset writes rows of noise-free data where quality is an exact
// linear function of the features. mutate, when set, may alter a row before
// it is written.
func writeDataset(t *testing.T, rows int, mutate func(row int, values []float64, quality *float64)) string {
	t.Helper()

	header := make([]string, 0, ml.FeatureCount+1)
	for _, name := range ml.ColumnNames() {
		header = append(header, strconv.Quote(name))
	}
	header = append(header, strconv.Quote(ml.TargetColumn))

	var b strings.Builder
	b.WriteString(strings.Join(header, ";"))
	b.WriteString("\n")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < rows; i++ {
		values := make([]float64, ml.FeatureCount)
		quality := 3.0
		for j := range values {
			values[j] = rng.Float64() * 10
			quality += 0.03 * float64(j+1) * values[j] / 10
		}
		if mutate != nil {
			mutate(i, values, &quality)
		}
		fields := make([]string, 0, ml.FeatureCount+1)
		for _, v := range values {
			fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
		}
		fields = append(fields, strconv.FormatFloat(quality, 'g', -1, 64))
		b.WriteString(strings.Join(fields, ";"))
		b.WriteString("\n")
	}

	path := filepath.Join(t.TempDir(), "wine.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func testConfig(t *testing.T, dataset string) Config {
	cfg := DefaultConfig()
	cfg.DatasetPath = dataset
	cfg.OutputDir = filepath.Join(t.TempDir(), "output")
	return cfg
}

func TestTrainerRun(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 100, nil))
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	result, err := NewTrainer(cfg, zap.NewNop(), metrics, reg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 80, result.TrainRows)
	assert.Equal(t, 20, result.TestRows)
	assert.Less(t, result.Metrics.MSE, 1e-12)
	assert.InDelta(t, 1.0, result.Metrics.R2Score, 1e-9)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "model.json"), result.ModelPath)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "metrics.json"), result.MetricsPath)

	payload, err := os.ReadFile(result.MetricsPath)
	require.NoError(t, err)
	var written map[string]float64
	require.NoError(t, json.Unmarshal(payload, &written))
	assert.Len(t, written, 2)
	assert.Contains(t, written, "MSE")
	assert.Contains(t, written, "R2_Score")
	assert.NotContains(t, string(payload), "ccuracy")

	loaded, err := ml.LoadModel(ml.LinearRegressionType, result.ModelPath)
	require.NoError(t, err)
	require.NoError(t, ml.CheckFeatureNames(loaded))

	probe := make([]float64, ml.FeatureCount)
	for i := range probe {
		probe[i] = 5
	}
	want, err := result.Model.Predict(probe)
	require.NoError(t, err)
	got, err := loaded.Predict(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Equal(t, 80.0, testutil.ToFloat64(metrics.TrainingRows.WithLabelValues("train")))
	assert.Equal(t, 20.0, testutil.ToFloat64(metrics.TrainingRows.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TrainingRuns.WithLabelValues("success")))

	require.NoError(t, db.InitDB(cfg.HistoryDB))
	defer db.CloseDB()
	logs, err := db.LoadTrainingLog(0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, ml.LinearRegressionType, logs[0].ModelName)
	assert.Equal(t, int64(1234), logs[0].Seed)
	assert.Equal(t, result.ModelPath, logs[0].Artifact)
}

func TestTrainerRunDeterministic(t *testing.T) {
	dataset := writeDataset(t, 60, nil)

	first, err := NewTrainer(testConfig(t, dataset), nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	second, err := NewTrainer(testConfig(t, dataset), nil, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Metrics, second.Metrics)

	a, err := os.ReadFile(first.MetricsPath)
	require.NoError(t, err)
	b, err := os.ReadFile(second.MetricsPath)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainerRunRejectsMalformedRows(t *testing.T) {
	cfg := testConfig(t, writeDataset(t, 50, func(row int, _ []float64, quality *float64) {
		if row == 7 {
			*quality = 42
		}
	}))

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	_, err := NewTrainer(cfg, zap.NewNop(), metrics, nil).Run(context.Background())
	require.ErrorIs(t, err, ErrMalformedDataset)
	assert.Contains(t, err.Error(), "row 8")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TrainingRuns.WithLabelValues("error")))

	_, statErr := os.Stat(cfg.ModelPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestTrainerRunErrors(t *testing.T) {
	dataset := writeDataset(t, 30, nil)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dataset", func(c *Config) { c.DatasetPath = filepath.Join(t.TempDir(), "absent.csv") }},
		{"empty dataset path", func(c *Config) { c.DatasetPath = "" }},
		{"bad test ratio", func(c *Config) { c.TestRatio = 1 }},
		{"unsupported model", func(c *Config) { c.ModelType = "random_forest" }},
		{"no model file", func(c *Config) { c.ModelFile = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, dataset)
			tt.mutate(&cfg)
			_, err := NewTrainer(cfg, nil, nil, nil).Run(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestTrainerRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainer(testConfig(t, writeDataset(t, 30, nil)), nil, nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainerRunRecordsQualityIssues(t *testing.T) {
	dataset := writeDataset(t, 50, func(row int, values []float64, _ *float64) {
		if row == 4 {
			values[4] = -values[4]
		}
	})
	cfg := testConfig(t, dataset)
	cfg.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	result, err := NewTrainer(cfg, nil, nil, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 5, result.Issues[0].Row)
	assert.Equal(t, 40, result.TrainRows)

	require.NoError(t, db.InitDB(cfg.HistoryDB))
	defer db.CloseDB()
	issues, err := db.LoadQualityIssues(context.Background(), dataset)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Row)
	assert.Equal(t, "low", issues[0].Severity)
}

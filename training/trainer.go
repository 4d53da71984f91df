// Package training runs one end-to-end training pass: load the dataset,
// clean it, split, fit, evaluate and persist the artifacts.
package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"winequality/db"
	"winequality/ml"
	"winequality/monitoring"
	"winequality/pipeline"
)

var ErrMalformedDataset = errors.New("malformed dataset")

type Config struct {
	DatasetPath string
	OutputDir   string
	ModelFile   string
	MetricsFile string
	TestRatio   float64
	Seed        int64
	ModelType   string
	// HistoryDB is an optional SQLite file recording every run.
	HistoryDB string
	// PushGateway is an optional Prometheus Pushgateway URL.
	PushGateway string
}

func DefaultConfig() Config {
	return Config{
		DatasetPath: "dataset/winequality-white.csv",
		OutputDir:   "output",
		ModelFile:   "model.json",
		MetricsFile: "metrics.json",
		TestRatio:   0.2,
		Seed:        1234,
		ModelType:   ml.LinearRegressionType,
	}
}

func (c Config) ModelPath() string {
	return filepath.Join(c.OutputDir, c.ModelFile)
}

func (c Config) MetricsPath() string {
	return filepath.Join(c.OutputDir, c.MetricsFile)
}

func (c Config) validate() error {
	if c.DatasetPath == "" {
		return errors.New("dataset path is required")
	}
	if c.ModelFile == "" || c.MetricsFile == "" {
		return errors.New("model and metrics file names are required")
	}
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test ratio must be in (0, 1): %g", c.TestRatio)
	}
	return nil
}

type Result struct {
	ModelPath   string
	MetricsPath string
	Metrics     ml.Metrics
	TrainRows   int
	TestRows    int
	Model       ml.MLModel
	// Issues are the non-fatal data quality findings from cleaning.
	Issues []pipeline.QualityIssue
}

type Trainer struct {
	cfg      Config
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	gatherer prometheus.Gatherer
	cleaner  *pipeline.DataCleaner
}

// NewTrainer builds a trainer. metrics and gatherer may be nil; the
// gatherer is only used when cfg.PushGateway is set.
func NewTrainer(cfg Config, logger *zap.Logger, metrics *monitoring.Metrics, gatherer prometheus.Gatherer) *Trainer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		gatherer: gatherer,
		cleaner:  pipeline.NewDataCleaner(),
	}
}

// Run trains with the process-wide metrics on the default registry.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) (*Result, error) {
	return NewTrainer(cfg, logger, monitoring.Default(), prometheus.DefaultGatherer).Run(ctx)
}

func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	result, err := t.run(ctx)
	if err != nil {
		t.metrics.RecordTrainingFailure()
		t.push(ctx)
		return nil, err
	}
	t.metrics.RecordTraining(result.Metrics.MSE, result.Metrics.R2Score, result.TrainRows, result.TestRows)
	t.push(ctx)
	return result, nil
}

func (t *Trainer) run(ctx context.Context) (*Result, error) {
	cfg := t.cfg
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ModelType == "" {
		cfg.ModelType = ml.LinearRegressionType
	}
	start := time.Now()

	dataset, err := ml.LoadDataset(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	t.logger.Info("dataset loaded",
		zap.String("path", cfg.DatasetPath),
		zap.Int("rows", dataset.Len()),
	)

	samples, issues, err := t.clean(dataset.Samples)
	if err != nil {
		return nil, err
	}
	dataset = &ml.Dataset{Samples: samples}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, labels := dataset.Features(), dataset.Labels()
	t.describe(features, labels)

	trainX, trainY, testX, testY, err := ml.TrainTestSplit(features, labels, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	t.logger.Info("dataset split",
		zap.Int("train_rows", len(trainX)),
		zap.Int("test_rows", len(testX)),
		zap.Int64("seed", cfg.Seed),
	)

	model, err := ml.NewModel(cfg.ModelType)
	if err != nil {
		return nil, err
	}
	if err := model.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train %s: %w", cfg.ModelType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metrics, err := ml.Evaluate(model, testX, testY)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	t.logger.Info("model evaluated",
		zap.Float64("mse", metrics.MSE),
		zap.Float64("r2_score", metrics.R2Score),
	)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	modelPath, metricsPath := cfg.ModelPath(), cfg.MetricsPath()
	if err := model.Save(modelPath); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	if err := ml.WriteMetrics(metricsPath, metrics); err != nil {
		return nil, fmt.Errorf("write metrics: %w", err)
	}

	result := &Result{
		ModelPath:   modelPath,
		MetricsPath: metricsPath,
		Metrics:     metrics,
		TrainRows:   len(trainX),
		TestRows:    len(testX),
		Model:       model,
		Issues:      issues,
	}

	if cfg.HistoryDB != "" {
		if err := recordHistory(ctx, cfg, result); err != nil {
			return nil, fmt.Errorf("record training history: %w", err)
		}
	}

	t.logger.Info("training finished",
		zap.String("model_path", modelPath),
		zap.String("metrics_path", metricsPath),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// clean rejects the dataset when any row carries a high severity issue and
// logs the rest.
func (t *Trainer) clean(samples []ml.WineSample) ([]ml.WineSample, []pipeline.QualityIssue, error) {
	cleaned, issues := t.cleaner.Clean(samples)
	if high := pipeline.HighSeverity(issues); len(high) > 0 {
		return nil, nil, fmt.Errorf("%w: %d rows rejected, first %s", ErrMalformedDataset, len(samples)-len(cleaned), high[0])
	}
	for _, issue := range issues {
		t.logger.Warn("data quality issue", zap.Stringer("issue", issue))
	}
	return cleaned, issues, nil
}

func (t *Trainer) describe(features [][]float64, labels []float64) {
	if !t.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	stats, err := ml.DescribeFeatures(features)
	if err != nil {
		return
	}
	for _, s := range stats {
		t.logger.Debug("feature summary",
			zap.String("feature", s.Name),
			zap.Float64("min", s.Min),
			zap.Float64("mean", s.Mean),
			zap.Float64("max", s.Max),
		)
	}
	if lo, hi, err := ml.LabelRange(labels); err == nil {
		t.logger.Debug("label range", zap.Float64("min", lo), zap.Float64("max", hi))
	}
}

func (t *Trainer) push(ctx context.Context) {
	if t.cfg.PushGateway == "" || t.gatherer == nil {
		return
	}
	if err := monitoring.PushTraining(ctx, t.cfg.PushGateway, t.gatherer); err != nil {
		t.logger.Warn("metrics push failed", zap.Error(err))
	}
}

func recordHistory(ctx context.Context, cfg Config, result *Result) error {
	if err := db.InitDB(cfg.HistoryDB); err != nil {
		return err
	}
	defer db.CloseDB()

	issues := make([]db.QualityIssue, len(result.Issues))
	for i, issue := range result.Issues {
		issues[i] = db.QualityIssue{
			Dataset:  cfg.DatasetPath,
			Row:      issue.Row,
			Type:     issue.Type,
			Severity: issue.Severity,
			Message:  issue.Message,
		}
	}
	if err := db.SaveQualityIssues(ctx, issues); err != nil {
		return err
	}

	return db.SaveTrainingLog(db.TrainingLog{
		ModelName: cfg.ModelType,
		MSE:       result.Metrics.MSE,
		R2Score:   result.Metrics.R2Score,
		TrainRows: result.TrainRows,
		TestRows:  result.TestRows,
		Seed:      cfg.Seed,
		Dataset:   cfg.DatasetPath,
		Artifact:  result.ModelPath,
	})
}

package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the Prometheus collectors for predictions and training runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	PredictionsTotal   *prometheus.CounterVec
	PredictionDuration prometheus.Histogram
	ValidationFailures prometheus.Counter

	TrainingMSE  prometheus.Gauge
	TrainingR2   prometheus.Gauge
	TrainingRows *prometheus.GaugeVec
	TrainingRuns *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// Default returns the process-wide collectors registered on the default
// Prometheus registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PredictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winequality_predictions_total",
				Help: "Total number of prediction requests by result",
			},
			[]string{"result"},
		),
		PredictionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "winequality_prediction_duration_seconds",
				Help:    "Time spent evaluating the model for one request",
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10), // 1µs to ~260ms
			},
		),
		ValidationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "winequality_request_validation_failures_total",
				Help: "Prediction requests rejected before reaching the model",
			},
		),
		TrainingMSE: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "winequality_training_mse",
				Help: "Mean squared error on the held-out subset of the last training run",
			},
		),
		TrainingR2: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "winequality_training_r2",
				Help: "R2 score on the held-out subset of the last training run",
			},
		),
		TrainingRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "winequality_training_rows",
				Help: "Rows used by the last training run",
			},
			[]string{"subset"},
		),
		TrainingRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winequality_training_runs_total",
				Help: "Training runs by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) ObservePrediction(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.PredictionsTotal.WithLabelValues(result).Inc()
	m.PredictionDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveValidationFailure() {
	if m == nil {
		return
	}
	m.ValidationFailures.Inc()
	m.PredictionsTotal.WithLabelValues("invalid").Inc()
}

func (m *Metrics) RecordTraining(mse, r2 float64, trainRows, testRows int) {
	if m == nil {
		return
	}
	m.TrainingMSE.Set(mse)
	m.TrainingR2.Set(r2)
	m.TrainingRows.WithLabelValues("train").Set(float64(trainRows))
	m.TrainingRows.WithLabelValues("test").Set(float64(testRows))
	m.TrainingRuns.WithLabelValues("success").Inc()
}

func (m *Metrics) RecordTrainingFailure() {
	if m == nil {
		return
	}
	m.TrainingRuns.WithLabelValues("error").Inc()
}

// Server exposes /metrics on its own listener so the prediction listener
// keeps a single route.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

func NewServer(port int, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info("starting metrics server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

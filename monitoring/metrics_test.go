package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObservePrediction(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObservePrediction(2*time.Millisecond, nil)
	m.ObservePrediction(time.Millisecond, nil)
	m.ObservePrediction(time.Millisecond, errors.New("boom"))
	m.ObserveValidationFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PredictionsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ValidationFailures))
}

func TestRecordTraining(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTraining(0.56, 0.28, 3918, 980)
	m.RecordTrainingFailure()

	assert.Equal(t, 0.56, testutil.ToFloat64(m.TrainingMSE))
	assert.Equal(t, 0.28, testutil.ToFloat64(m.TrainingR2))
	assert.Equal(t, 3918.0, testutil.ToFloat64(m.TrainingRows.WithLabelValues("train")))
	assert.Equal(t, 980.0, testutil.ToFloat64(m.TrainingRows.WithLabelValues("test")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePrediction(time.Millisecond, nil)
		m.ObserveValidationFailure()
		m.RecordTraining(1, 1, 1, 1)
		m.RecordTrainingFailure()
	})
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestMetricsServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObservePrediction(time.Millisecond, nil)

	srv := NewServer(0, reg, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `winequality_predictions_total{result="success"} 1`), string(body))
}

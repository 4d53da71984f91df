package main

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"winequality/config"
	"winequality/ml"
)

func TestNewServiceRequiresModel(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "absent.json")

	_, err := newService(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewServiceRejectsCorruptModel(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(cfg.Model.Path, []byte("not a model"), 0o600))

	_, err := newService(cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestNewServiceServesPredictions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	features := make([][]float64, 0, 30)
	labels := make([]float64, 0, 30)
	for i := 0; i < 30; i++ {
		row := make([]float64, ml.FeatureCount)
		for j := range row {
			row[j] = rng.Float64() * 10
		}
		features = append(features, row)
		labels = append(labels, 6)
	}
	model := ml.NewLinearRegression()
	require.NoError(t, model.Train(features, labels))

	cfg := config.Default()
	cfg.Model.Path = filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, model.Save(cfg.Model.Path))

	server, err := newService(cfg, nil, zap.NewNop())
	require.NoError(t, err)

	body := `{"fixed_acidity": 7, "volatile_acidity": 0.27, "citric_acid": 0.36, "residual_sugar": 20.7,
		"chlorides": 0.045, "free_sulfur_dioxide": 45, "total_sulfur_dioxide": 170, "density": 1.001,
		"pH": 3, "sulphates": 0.45, "alcohol": 8.8}`
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, cfg.Identity.Name, payload["name"])
	assert.Equal(t, cfg.Identity.RollNo, payload["roll_no"])
	assert.InDelta(t, 6.0, payload["wine_quality"].(float64), 1e-6)
}

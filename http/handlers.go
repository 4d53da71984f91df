package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"winequality/ml"
	"winequality/monitoring"
)

// Identity is echoed back on every prediction.
type Identity struct {
	Name   string
	RollNo string
}

type PredictResponse struct {
	Name        string  `json:"name"`
	RollNo      string  `json:"roll_no"`
	WineQuality float64 `json:"wine_quality"`
}

// PredictAPI serves predictions from a model loaded once at startup. The
// model is only read, so concurrent requests share it without locking.
type PredictAPI struct {
	model    ml.Predictor
	identity Identity
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

func NewPredictAPI(model ml.Predictor, identity Identity, metrics *monitoring.Metrics, logger *zap.Logger) *PredictAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictAPI{
		model:    model,
		identity: identity,
		metrics:  metrics,
		logger:   logger,
	}
}

func (a *PredictAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", a.handlePredict)
}

func (a *PredictAPI) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.metrics.ObserveValidationFailure()
			respondDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondDetail(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	features, err := ParsePredictRequest(body)
	if err != nil {
		a.metrics.ObserveValidationFailure()
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": verrs})
			return
		}
		respondDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	start := time.Now()
	quality, err := a.model.Predict(ml.FeatureVector(features))
	a.metrics.ObservePrediction(time.Since(start), err)
	if err != nil {
		a.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		respondDetail(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		Name:        a.identity.Name,
		RollNo:      a.identity.RollNo,
		WineQuality: quality,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondDetail(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}

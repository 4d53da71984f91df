package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"winequality/config"
	qhttp "winequality/http"
	"winequality/logging"
	"winequality/ml"
	"winequality/monitoring"
)

func main() {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 2. Load the model; the service never starts without one
	metrics := monitoring.Default()
	server, err := newService(cfg, metrics, logger)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}

	// 3. Start HTTP servers
	errs := make(chan error, 2)
	go func() { errs <- server.Start() }()

	var metricsServer *monitoring.Server
	if cfg.Metrics.Port != 0 {
		metricsServer = monitoring.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer, logger)
		go func() { errs <- metricsServer.Start() }()
	}

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	case err := <-errs:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(ctx); err != nil {
			logger.Warn("metrics server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("exiting")
}

// newService loads the model named in cfg and builds the prediction server
// around it.
func newService(cfg *config.Config, metrics *monitoring.Metrics, logger *zap.Logger) (*qhttp.Server, error) {
	model, err := ml.LoadModel(cfg.Model.Type, cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	if err := ml.CheckFeatureNames(model); err != nil {
		return nil, err
	}
	logger.Info("model loaded",
		zap.String("type", cfg.Model.Type),
		zap.String("path", cfg.Model.Path),
	)

	api := qhttp.NewPredictAPI(model, qhttp.Identity{
		Name:   cfg.Identity.Name,
		RollNo: cfg.Identity.RollNo,
	}, metrics, logger)

	mux := http.NewServeMux()
	api.Register(mux)

	return qhttp.NewServer(qhttp.ServerConfig{
		Port:         cfg.Http.Port,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	}, mux, logger), nil
}

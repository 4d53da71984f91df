// Package config loads the YAML configuration shared by the trainer and the
// prediction service.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"winequality/logging"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "CONFIG_PATH"

const DefaultPath = "config.yaml"

type Config struct {
	Http struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	} `yaml:"http"`
	Log   logging.Config `yaml:"log"`
	Model struct {
		Type string `yaml:"type"`
		Path string `yaml:"path"`
	} `yaml:"model"`
	Identity struct {
		Name   string `yaml:"name"`
		RollNo string `yaml:"roll_no"`
	} `yaml:"identity"`
	Metrics struct {
		Port int `yaml:"port"`
	} `yaml:"metrics"`
	Training struct {
		DatasetPath string  `yaml:"dataset_path"`
		OutputDir   string  `yaml:"output_dir"`
		ModelFile   string  `yaml:"model_file"`
		MetricsFile string  `yaml:"metrics_file"`
		TestRatio   float64 `yaml:"test_ratio"`
		Seed        int64   `yaml:"seed"`
		HistoryDB   string  `yaml:"history_db"`
		PushGateway string  `yaml:"pushgateway"`
	} `yaml:"training"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Http.Port = 8000
	cfg.Http.ReadTimeout = 10 * time.Second
	cfg.Http.WriteTimeout = 10 * time.Second
	cfg.Http.ShutdownTimeout = 5 * time.Second
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Log = logging.DefaultConfig()
	cfg.Model.Type = "linear_regression"
	cfg.Model.Path = "output/model.json"
	cfg.Identity.Name = "Arjun Sreenivas"
	cfg.Identity.RollNo = "2022BCS0060"
	cfg.Training.DatasetPath = "dataset/winequality-white.csv"
	cfg.Training.OutputDir = "output"
	cfg.Training.ModelFile = "model.json"
	cfg.Training.MetricsFile = "metrics.json"
	cfg.Training.TestRatio = 0.2
	cfg.Training.Seed = 1234
	return cfg
}

// Path returns the config file location, honouring CONFIG_PATH.
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return DefaultPath
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults; a malformed one is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.Http.Port)
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	if c.Metrics.Port != 0 && c.Metrics.Port == c.Http.Port {
		return errors.New("metrics.port must differ from http.port")
	}
	if c.Http.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be positive: %d", c.Http.MaxBodyBytes)
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio must be in (0, 1): %g", c.Training.TestRatio)
	}
	if c.Training.ModelFile == "" || c.Training.MetricsFile == "" {
		return errors.New("training.model_file and training.metrics_file are required")
	}
	return nil
}

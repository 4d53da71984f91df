package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"winequality/config"
	"winequality/db"
	"winequality/logging"
	"winequality/training"
)

type options struct {
	configPath  string
	dataset     string
	outputDir   string
	testRatio   float64
	seed        int64
	historyDB   string
	pushGateway string
	logLevel    string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "train_model",
		Short: "Fit the wine quality regression model",
		Long: `train_model reads the semicolon-delimited wine quality dataset, fits an
ordinary least squares model on an 80/20 split and writes the model artifact
together with metrics.json (MSE and R2_Score).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.Path(), "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level")
	flags.StringVar(&opts.historyDB, "history-db", "", "SQLite file recording every training run")

	local := rootCmd.Flags()
	local.StringVar(&opts.dataset, "dataset", "", "dataset CSV path")
	local.StringVar(&opts.outputDir, "output-dir", "", "directory for the model and metrics files")
	local.Float64Var(&opts.testRatio, "test-ratio", 0, "fraction of rows held out for evaluation")
	local.Int64Var(&opts.seed, "seed", 0, "shuffle seed for the train/test split")
	local.StringVar(&opts.pushGateway, "pushgateway", "", "Prometheus Pushgateway URL")

	rootCmd.AddCommand(newHistoryCommand(opts))
	return rootCmd
}

func runTrain(cmd *cobra.Command, opts *options) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	trainCfg := training.Config{
		DatasetPath: cfg.Training.DatasetPath,
		OutputDir:   cfg.Training.OutputDir,
		ModelFile:   cfg.Training.ModelFile,
		MetricsFile: cfg.Training.MetricsFile,
		TestRatio:   cfg.Training.TestRatio,
		Seed:        cfg.Training.Seed,
		ModelType:   cfg.Model.Type,
		HistoryDB:   cfg.Training.HistoryDB,
		PushGateway: cfg.Training.PushGateway,
	}

	result, err := training.Run(cmd.Context(), trainCfg, logger)
	if err != nil {
		logger.Error("training failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "model saved to %s\n", result.ModelPath)
	fmt.Fprintf(out, "metrics saved to %s\n", result.MetricsPath)
	fmt.Fprintf(out, "MSE: %g\n", result.Metrics.MSE)
	fmt.Fprintf(out, "R2 Score: %g\n", result.Metrics.R2Score)
	return nil
}

func newHistoryCommand(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded training runs as JSON, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Training.HistoryDB == "" {
				return errors.New("no history database configured (set training.history_db or --history-db)")
			}
			if err := db.InitDB(cfg.Training.HistoryDB); err != nil {
				return err
			}
			defer db.CloseDB()

			logs, err := db.LoadTrainingLog(limit)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(logs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to print (0 for all)")
	return cmd
}

// setup loads the config file and applies the flags the user set explicitly.
func setup(cmd *cobra.Command, opts *options) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("dataset") {
		cfg.Training.DatasetPath = opts.dataset
	}
	if flags.Changed("output-dir") {
		cfg.Training.OutputDir = opts.outputDir
	}
	if flags.Changed("test-ratio") {
		cfg.Training.TestRatio = opts.testRatio
	}
	if flags.Changed("seed") {
		cfg.Training.Seed = opts.seed
	}
	if flags.Changed("history-db") {
		cfg.Training.HistoryDB = opts.historyDB
	}
	if flags.Changed("pushgateway") {
		cfg.Training.PushGateway = opts.pushGateway
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

var ErrNotInitialized = errors.New("database not initialized")

// InitDB opens the SQLite training history at path and creates its schema.
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS training_log (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        model_name VARCHAR(50) NOT NULL,
        mse REAL NOT NULL,
        r2_score REAL NOT NULL,
        train_rows INTEGER NOT NULL,
        test_rows INTEGER NOT NULL,
        seed INTEGER NOT NULL,
        dataset TEXT,
        artifact TEXT,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_log_trained_at ON training_log(trained_at);
    CREATE TABLE IF NOT EXISTS data_quality (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        dataset TEXT NOT NULL,
        row_number INTEGER NOT NULL,
        issue_type TEXT NOT NULL,
        severity TEXT NOT NULL,
        message TEXT,
        recorded_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_data_quality_dataset ON data_quality(dataset);
    `

	if _, err = database.Exec(query); err != nil {
		database.Close()
		database = nil
		return err
	}
	return nil
}

func CloseDB() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

type TrainingLog struct {
	ModelName string    `json:"model_name"`
	MSE       float64   `json:"mse"`
	R2Score   float64   `json:"r2_score"`
	TrainRows int       `json:"train_rows"`
	TestRows  int       `json:"test_rows"`
	Seed      int64     `json:"seed"`
	Dataset   string    `json:"dataset"`
	Artifact  string    `json:"artifact"`
	TrainedAt time.Time `json:"trained_at"`
}

// SaveTrainingLog appends one training run. A zero TrainedAt is stamped
// with the current time.
func SaveTrainingLog(entry TrainingLog) error {
	if database == nil {
		return ErrNotInitialized
	}
	if entry.ModelName == "" {
		return errors.New("model name required")
	}
	if entry.TrainedAt.IsZero() {
		entry.TrainedAt = time.Now()
	}
	_, err := database.Exec(`
        INSERT INTO training_log (
            model_name, mse, r2_score, train_rows, test_rows, seed, dataset, artifact, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		entry.ModelName,
		entry.MSE,
		entry.R2Score,
		entry.TrainRows,
		entry.TestRows,
		entry.Seed,
		entry.Dataset,
		entry.Artifact,
		entry.TrainedAt.UTC(),
	)
	return err
}

// LoadTrainingLog returns recorded runs newest first. limit <= 0 returns all.
func LoadTrainingLog(limit int) ([]TrainingLog, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.Query(`
        SELECT model_name, mse, r2_score, train_rows, test_rows, seed,
               COALESCE(dataset, ''), COALESCE(artifact, ''), trained_at
        FROM training_log
        ORDER BY trained_at DESC, id DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]TrainingLog, 0)
	for rows.Next() {
		var log TrainingLog
		if err := rows.Scan(
			&log.ModelName, &log.MSE, &log.R2Score, &log.TrainRows, &log.TestRows, &log.Seed,
			&log.Dataset, &log.Artifact, &log.TrainedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

type QualityIssue struct {
	Dataset    string    `json:"dataset"`
	Row        int       `json:"row"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SaveQualityIssues stores the issues found while cleaning a dataset in one
// transaction.
func SaveQualityIssues(ctx context.Context, issues []QualityIssue) error {
	if database == nil {
		return ErrNotInitialized
	}
	if len(issues) == 0 {
		return nil
	}

	tx, err := database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO data_quality (dataset, row_number, issue_type, severity, message, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, issue := range issues {
		recordedAt := issue.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			issue.Dataset, issue.Row, issue.Type, issue.Severity, issue.Message, recordedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert failed: %w", err)
		}
	}
	return tx.Commit()
}

// LoadQualityIssues returns the recorded issues for dataset in row order.
func LoadQualityIssues(ctx context.Context, dataset string) ([]QualityIssue, error) {
	if database == nil {
		return nil, ErrNotInitialized
	}
	rows, err := database.QueryContext(ctx, `
        SELECT dataset, row_number, issue_type, severity, COALESCE(message, ''), recorded_at
        FROM data_quality
        WHERE dataset = ?
        ORDER BY row_number, id
    `, dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	issues := make([]QualityIssue, 0)
	for rows.Next() {
		var issue QualityIssue
		if err := rows.Scan(&issue.Dataset, &issue.Row, &issue.Type, &issue.Severity, &issue.Message, &issue.RecordedAt); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// Package sqlite persists analysis runs (feature tables and per-class
// statistics) in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bciworks/epochlab/internal/features"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Store wraps the results database.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// RunInfo describes one stored analysis run.
type RunInfo struct {
	ID        string    `json:"id"`
	Recording string    `json:"recording"`
	CreatedAt time.Time `json:"created_at"`
	Epochs    int       `json:"epochs"`
}

// FeatureValue is one cell of a stored feature table, in long format. Flagged
// marks cells from epochs the aggregation flagged (a propagated near-zero
// ratio denominator) so consumers can exclude them.
type FeatureValue struct {
	EpochIndex int     `json:"epoch"`
	Label      string  `json:"label"`
	Column     string  `json:"column"`
	Value      float64 `json:"value"`
	Flagged    bool    `json:"flagged"`
}

// MarshalJSON renders non-finite values as strings ("+Inf", "-Inf", "NaN");
// encoding/json rejects the IEEE specials outright.
func (fv FeatureValue) MarshalJSON() ([]byte, error) {
	out := struct {
		EpochIndex int         `json:"epoch"`
		Label      string      `json:"label"`
		Column     string      `json:"column"`
		Value      interface{} `json:"value"`
		Flagged    bool        `json:"flagged"`
	}{fv.EpochIndex, fv.Label, fv.Column, fv.Value, fv.Flagged}

	switch {
	case math.IsInf(fv.Value, 1):
		out.Value = "+Inf"
	case math.IsInf(fv.Value, -1):
		out.Value = "-Inf"
	case math.IsNaN(fv.Value):
		out.Value = "NaN"
	}
	return json.Marshal(out)
}

// StatValue is one stored per-class statistic.
type StatValue struct {
	Channel  string  `json:"channel"`
	BandLow  float64 `json:"band_low"`
	BandHigh float64 `json:"band_high"`
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdErr   float64 `json:"stderr"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	recording TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	epochs INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS feature_rows (
	run_id TEXT NOT NULL REFERENCES runs(id),
	epoch_idx INTEGER NOT NULL,
	label TEXT NOT NULL,
	column_name TEXT NOT NULL,
	value REAL NOT NULL,
	flagged INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_feature_rows_run ON feature_rows(run_id);
CREATE TABLE IF NOT EXISTS class_stats (
	run_id TEXT NOT NULL REFERENCES runs(id),
	channel TEXT NOT NULL,
	band_low REAL NOT NULL,
	band_high REAL NOT NULL,
	label TEXT NOT NULL,
	n INTEGER NOT NULL,
	mean REAL NOT NULL,
	stderr REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_class_stats_run ON class_stats(run_id);
`

// New opens (creating if necessary) the results database at path.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a feature table and its per-class statistics as one run and
// returns the generated run ID.
func (s *Store) SaveRun(ctx context.Context, recordingName string, table *features.Table, stats map[features.PowerKey]map[string]features.ClassStat) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, recording, created_at, epochs) VALUES (?, ?, ?, ?)`,
		id, recordingName, time.Now().UTC(), len(table.Rows),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO feature_rows (run_id, epoch_idx, label, column_name, value, flagged) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("failed to prepare feature insert: %w", err)
	}
	defer stmt.Close()

	columns := table.ColumnNames()
	for _, row := range table.Rows {
		values := rowValues(table, row)
		for i, v := range values {
			if _, err := stmt.ExecContext(ctx, id, row.EpochIndex, row.Label, columns[i], v, row.Flagged); err != nil {
				return "", fmt.Errorf("failed to insert feature value: %w", err)
			}
		}
	}

	statStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO class_stats (run_id, channel, band_low, band_high, label, n, mean, stderr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", fmt.Errorf("failed to prepare stats insert: %w", err)
	}
	defer statStmt.Close()

	for _, key := range sortedStatKeys(stats) {
		byClass := stats[key]
		labels := make([]string, 0, len(byClass))
		for label := range byClass {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			cs := byClass[label]
			if _, err := statStmt.ExecContext(ctx,
				id, key.Channel, key.Band.Low, key.Band.High, label, cs.Count, cs.Mean, cs.StdErr,
			); err != nil {
				return "", fmt.Errorf("failed to insert class stat: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	if s.logger != nil {
		s.logger.Infof("stored run %s: %d epochs, %d feature columns", id, len(table.Rows), len(columns)-1)
	}
	return id, nil
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recording, created_at, epochs FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.ID, &r.Recording, &r.CreatedAt, &r.Epochs); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Features returns a run's feature table in long format, ordered by epoch.
func (s *Store) Features(ctx context.Context, runID string) ([]FeatureValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT epoch_idx, label, column_name, value, flagged FROM feature_rows
		 WHERE run_id = ? ORDER BY epoch_idx, column_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	defer rows.Close()

	var out []FeatureValue
	for rows.Next() {
		var fv FeatureValue
		if err := rows.Scan(&fv.EpochIndex, &fv.Label, &fv.Column, &fv.Value, &fv.Flagged); err != nil {
			return nil, fmt.Errorf("failed to scan feature value: %w", err)
		}
		out = append(out, fv)
	}
	return out, rows.Err()
}

// Stats returns a run's per-class statistics.
func (s *Store) Stats(ctx context.Context, runID string) ([]StatValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, band_low, band_high, label, n, mean, stderr FROM class_stats
		 WHERE run_id = ? ORDER BY channel, band_low, label`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var out []StatValue
	for rows.Next() {
		var sv StatValue
		if err := rows.Scan(&sv.Channel, &sv.BandLow, &sv.BandHigh, &sv.Label, &sv.Count, &sv.Mean, &sv.StdErr); err != nil {
			return nil, fmt.Errorf("failed to scan stat: %w", err)
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// rowValues flattens a feature row in the table's export column order,
// excluding the trailing label column.
func rowValues(t *features.Table, row features.Row) []float64 {
	var values []float64
	for _, k := range t.PowerKeys() {
		values = append(values, row.Power[k])
	}
	for _, k := range t.RatioKeys() {
		values = append(values, row.Ratios[k])
	}
	for _, k := range t.DiffKeys() {
		values = append(values, row.Diffs[k])
	}
	for _, ch := range t.AnalyticChannels() {
		values = append(values, row.MeanAmplitude[ch])
	}
	for _, ch := range t.AnalyticChannels() {
		values = append(values, row.MeanFrequency[ch])
	}
	return values
}

func sortedStatKeys(stats map[features.PowerKey]map[string]features.ClassStat) []features.PowerKey {
	keys := make([]features.PowerKey, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Channel != keys[j].Channel {
			return keys[i].Channel < keys[j].Channel
		}
		return keys[i].Band.Low < keys[j].Band.Low
	})
	return keys
}

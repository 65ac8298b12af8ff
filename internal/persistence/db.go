// Package persistence provides SQLite-based storage for model runs and
// calibration results.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/happiness-abm/internal/calibrate"
	"github.com/talgya/happiness-abm/internal/engine"
)

// Run kinds.
const (
	KindHappiness = "happiness"
	KindSocial    = "social"
)

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Run is one stored simulation.
type Run struct {
	ID          string `db:"id" json:"id"`
	Kind        string `db:"kind" json:"kind"`
	Network     string `db:"network" json:"network"`
	Seed        int64  `db:"seed" json:"seed"`
	Steps       int    `db:"steps" json:"steps"`
	Agents      int    `db:"agents" json:"agents"`
	ParamsJSON  string `db:"params_json" json:"params"`
	CreatedUnix int64  `db:"created_at" json:"created_at"`
}

// Created returns the run's creation time.
func (r Run) Created() time.Time {
	return time.Unix(r.CreatedUnix, 0)
}

// SeriesPoint is one step of a model variable.
type SeriesPoint struct {
	Step  int     `db:"step" json:"step"`
	Value float64 `db:"value" json:"value"`
}

// Calibration is a stored calibration result.
type Calibration struct {
	Network     string  `db:"network" json:"network"`
	R           float64 `db:"r" json:"r"`
	N           int     `db:"n" json:"n"`
	CreatedUnix int64   `db:"created_at" json:"created_at"`
}

// Created returns when the calibration was recorded.
func (c Calibration) Created() time.Time {
	return time.Unix(c.CreatedUnix, 0)
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		network TEXT NOT NULL DEFAULT '',
		seed INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		params_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS model_vars (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		step INTEGER NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run_id, step, name)
	);

	CREATE TABLE IF NOT EXISTS agent_vars (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		step INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		vars_json TEXT NOT NULL,
		PRIMARY KEY (run_id, step, agent_id)
	);

	CREATE TABLE IF NOT EXISTS calibrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		network TEXT NOT NULL,
		r REAL NOT NULL,
		n INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_calibrations_network ON calibrations(network, created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// NewRun prepares a run record with a fresh ID. params is stored as JSON.
func NewRun(kind, network string, seed int64, agents int, params any) (Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return Run{}, fmt.Errorf("marshal params: %w", err)
	}
	return Run{
		ID:          uuid.NewString(),
		Kind:        kind,
		Network:     network,
		Seed:        seed,
		Agents:      agents,
		ParamsJSON:  string(paramsJSON),
		CreatedUnix: time.Now().Unix(),
	}, nil
}

// SaveRun writes a run with everything its data collector gathered.
func (db *DB) SaveRun(run Run, modelRows []engine.ModelRow, agentRows []engine.AgentRow) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, kind, network, seed, steps, agents, params_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Network, run.Seed, run.Steps, run.Agents, run.ParamsJSON, run.CreatedUnix,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	modelStmt, err := tx.Preparex("INSERT INTO model_vars (run_id, step, name, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer modelStmt.Close()

	for _, row := range modelRows {
		for name, v := range row.Values {
			if _, err := modelStmt.Exec(run.ID, row.Step, name, v); err != nil {
				return fmt.Errorf("insert model var %s@%d: %w", name, row.Step, err)
			}
		}
	}

	agentStmt, err := tx.Preparex("INSERT INTO agent_vars (run_id, step, agent_id, vars_json) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer agentStmt.Close()

	for _, row := range agentRows {
		varsJSON, err := json.Marshal(row.Values)
		if err != nil {
			return fmt.Errorf("marshal agent %d vars: %w", row.AgentID, err)
		}
		if _, err := agentStmt.Exec(run.ID, row.Step, row.AgentID, string(varsJSON)); err != nil {
			return fmt.Errorf("insert agent %d@%d: %w", row.AgentID, row.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("run saved", "id", run.ID, "kind", run.Kind, "model_rows", len(modelRows), "agent_rows", len(agentRows))
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		`SELECT id, kind, network, seed, steps, agents, params_json, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	return runs, err
}

// GetRun returns one run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run,
		`SELECT id, kind, network, seed, steps, agents, params_json, created_at
		 FROM runs WHERE id = ?`, id)
	return run, err
}

// ModelSeries returns one model variable of a run ordered by step.
func (db *DB) ModelSeries(runID, name string) ([]SeriesPoint, error) {
	var points []SeriesPoint
	err := db.conn.Select(&points,
		"SELECT step, value FROM model_vars WHERE run_id = ? AND name = ? ORDER BY step",
		runID, name,
	)
	return points, err
}

// AgentVars returns the agent variables of a run at one step keyed by agent.
func (db *DB) AgentVars(runID string, step int) (map[uint64]map[string]float64, error) {
	var rows []struct {
		AgentID  uint64 `db:"agent_id"`
		VarsJSON string `db:"vars_json"`
	}
	err := db.conn.Select(&rows,
		"SELECT agent_id, vars_json FROM agent_vars WHERE run_id = ? AND step = ? ORDER BY agent_id",
		runID, step,
	)
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]map[string]float64, len(rows))
	for _, r := range rows {
		var vars map[string]float64
		if err := json.Unmarshal([]byte(r.VarsJSON), &vars); err != nil {
			return nil, fmt.Errorf("decode agent %d vars: %w", r.AgentID, err)
		}
		out[r.AgentID] = vars
	}
	return out, nil
}

// SaveCalibration records a calibration result.
func (db *DB) SaveCalibration(res calibrate.Result) error {
	_, err := db.conn.Exec(
		"INSERT INTO calibrations (network, r, n, created_at) VALUES (?, ?, ?, ?)",
		res.Network, res.R, res.N, time.Now().Unix(),
	)
	return err
}

// RecentCalibrations returns the newest calibration results first.
func (db *DB) RecentCalibrations(limit int) ([]Calibration, error) {
	var cals []Calibration
	err := db.conn.Select(&cals,
		"SELECT network, r, n, created_at FROM calibrations ORDER BY id DESC LIMIT ?",
		limit,
	)
	return cals, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

// Package tracking is the experiment-tracking sink: a SQLite-backed store
// of runs, metrics, tags, model artifacts, and registered model versions.
package tracking

import (
	"database/sql"
	"encoding"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	experiment  TEXT NOT NULL,
	run_name    TEXT NOT NULL,
	status      TEXT NOT NULL,
	start_time  TEXT NOT NULL,
	end_time    TEXT
);

CREATE TABLE IF NOT EXISTS metrics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       REAL NOT NULL,
	logged_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS tags (
	run_id      TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (run_id, key),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS artifacts (
	run_id      TEXT NOT NULL,
	name        TEXT NOT NULL,
	data        BLOB NOT NULL,
	PRIMARY KEY (run_id, name),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS registered_models (
	name        TEXT NOT NULL,
	version     INTEGER NOT NULL,
	run_id      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (name, version),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store manages tracked runs in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the tracking database at path. Use
// ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracking: open %s: %w", path, err)
	}

	// A single pooled connection: concurrent trials write through one
	// serialized handle instead of racing into SQLITE_BUSY, and a ":memory:"
	// store stays one database rather than one per pool connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracking: set busy_timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracking: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Run is a handle to one in-progress tracked run.
type Run struct {
	ID    string
	store *Store
}

// StartRun creates a RUNNING run under the given experiment and applies the
// initial tags.
func (s *Store) StartRun(experiment, name string, tags map[string]string) (*Run, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, experiment, run_name, status, start_time)
		VALUES (?, ?, ?, ?, ?)`,
		id, experiment, name, string(RunStatusRunning), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("tracking: start run: %w", err)
	}

	run := &Run{ID: id, store: s}
	for k, v := range tags {
		if err := run.SetTag(k, v); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// LogMetric records a scalar metric for the run. NaN values are skipped
// silently: an undefined metric (for example accuracy of a full-data
// training run with no validation split) is not an error.
func (r *Run) LogMetric(key string, value float64) error {
	if math.IsNaN(value) {
		return nil
	}
	_, err := r.store.db.Exec(`
		INSERT INTO metrics (run_id, key, value, logged_at)
		VALUES (?, ?, ?, ?)`,
		r.ID, key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("tracking: log metric %s: %w", key, err)
	}
	return nil
}

// SetTag stores or replaces a descriptive tag on the run.
func (r *Run) SetTag(key, value string) error {
	_, err := r.store.db.Exec(`
		INSERT INTO tags (run_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
		r.ID, key, value,
	)
	if err != nil {
		return fmt.Errorf("tracking: set tag %s: %w", key, err)
	}
	return nil
}

// LogModel serializes the model and stores it as a named artifact of the
// run.
func (r *Run) LogModel(name string, model encoding.BinaryMarshaler) error {
	data, err := model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("tracking: marshal model %s: %w", name, err)
	}
	_, err = r.store.db.Exec(`
		INSERT INTO artifacts (run_id, name, data) VALUES (?, ?, ?)
		ON CONFLICT (run_id, name) DO UPDATE SET data = excluded.data`,
		r.ID, name, data,
	)
	if err != nil {
		return fmt.Errorf("tracking: log model %s: %w", name, err)
	}
	return nil
}

// End closes the run with the given terminal status.
func (r *Run) End(status RunStatus) error {
	_, err := r.store.db.Exec(`
		UPDATE runs SET status = ?, end_time = ? WHERE run_id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("tracking: end run: %w", err)
	}
	return nil
}

// RegisterModel registers the run's model under name, assigning the next
// version number for that name.
func (s *Store) RegisterModel(name, runID string) (ModelVersion, error) {
	var version int
	err := s.db.QueryRow(`
		SELECT COALESCE(MAX(version), 0) + 1 FROM registered_models WHERE name = ?`,
		name,
	).Scan(&version)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("tracking: next version for %s: %w", name, err)
	}

	created := time.Now().UTC()
	_, err = s.db.Exec(`
		INSERT INTO registered_models (name, version, run_id, created_at)
		VALUES (?, ?, ?, ?)`,
		name, version, runID, created.Format(time.RFC3339),
	)
	if err != nil {
		return ModelVersion{}, fmt.Errorf("tracking: register model %s: %w", name, err)
	}
	return ModelVersion{Name: name, Version: version, RunID: runID, CreatedAt: created}, nil
}

// GetMetric returns the most recent value of a metric, with found=false
// when the run never logged it.
func (s *Store) GetMetric(runID, key string) (value float64, found bool, err error) {
	err = s.db.QueryRow(`
		SELECT value FROM metrics
		WHERE run_id = ? AND key = ?
		ORDER BY id DESC LIMIT 1`,
		runID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("tracking: get metric %s: %w", key, err)
	}
	return value, true, nil
}

// GetArtifact returns the raw bytes of a named artifact.
func (s *Store) GetArtifact(runID, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM artifacts WHERE run_id = ? AND name = ?`,
		runID, name,
	).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("tracking: get artifact %s: %w", name, err)
	}
	return data, nil
}

// ListRuns returns every run of an experiment, newest first, with its tags.
func (s *Store) ListRuns(experiment string) ([]RunInfo, error) {
	rows, err := s.db.Query(`
		SELECT run_id, experiment, run_name, status, start_time, end_time
		FROM runs WHERE experiment = ?
		ORDER BY start_time DESC, run_id`,
		experiment,
	)
	if err != nil {
		return nil, fmt.Errorf("tracking: list runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		var start string
		var end sql.NullString
		if err := rows.Scan(&info.RunID, &info.Experiment, &info.RunName, &info.Status, &start, &end); err != nil {
			return nil, err
		}
		if info.StartTime, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("tracking: parse start_time: %w", err)
		}
		if end.Valid {
			t, err := time.Parse(time.RFC3339, end.String)
			if err != nil {
				return nil, fmt.Errorf("tracking: parse end_time: %w", err)
			}
			info.EndTime = &t
		}
		if info.Tags, err = s.runTags(info.RunID); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func (s *Store) runTags(runID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM tags WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("tracking: run tags: %w", err)
	}
	defer rows.Close()

	tags := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		tags[k] = v
	}
	return tags, rows.Err()
}

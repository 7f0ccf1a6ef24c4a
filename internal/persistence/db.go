// Package persistence provides SQLite-based run storage: one row per run,
// the events each run created, what agents recognized, and per-cycle stats.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crowdsense/internal/engine"
)

// DB wraps a SQLite connection for run persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the cycle observer and
	// API readers.
	conn.SetMaxOpenConns(1)

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
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		origin_x REAL NOT NULL,
		origin_y REAL NOT NULL,
		origin_z REAL NOT NULL,
		intensity REAL NOT NULL,
		created_cycle INTEGER NOT NULL,
		expired_cycle INTEGER,
		properties_json TEXT NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS recognitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		event TEXT NOT NULL,
		certainty REAL NOT NULL,
		matched INTEGER NOT NULL,
		expected INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cycle_stats (
		run_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		duration_us INTEGER NOT NULL,
		agents INTEGER NOT NULL,
		live_events INTEGER NOT NULL,
		created INTEGER NOT NULL,
		expired INTEGER NOT NULL,
		sensed INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		PRIMARY KEY (run_id, cycle)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_recognitions_run_cycle ON recognitions(run_id, cycle);
	CREATE INDEX IF NOT EXISTS idx_recognitions_event ON recognitions(run_id, event);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one stored simulation run.
type Run struct {
	ID         string `db:"id" json:"id"`
	Seed       int64  `db:"seed" json:"seed"`
	StartedAt  string `db:"started_at" json:"started_at"`
	ConfigJSON string `db:"config_json" json:"-"`
}

// StartRun records a new run and returns its ID. cfg is stored as JSON.
func (db *DB) StartRun(seed int64, cfg any) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode run config: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, seed, started_at, config_json) VALUES (?, ?, ?, ?)",
		id, seed, time.Now().UTC().Format(time.RFC3339), string(cfgJSON),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := db.SaveMeta("last_run", id); err != nil {
		return "", fmt.Errorf("save meta: %w", err)
	}
	slog.Info("run started", "run", id, "seed", seed)
	return id, nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, seed, started_at, config_json FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// SaveCycle writes everything in one cycle report in a single transaction.
func (db *DB) SaveCycle(runID string, r *engine.CycleReport) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	cycle := r.Stats.Cycle
	for _, e := range r.Created {
		propsJSON, _ := json.Marshal(e.Properties)
		_, err := tx.Exec(`INSERT INTO events
			(run_id, id, kind, origin_x, origin_y, origin_z, intensity, created_cycle, properties_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, e.ID, e.Kind.String(), e.Origin.X, e.Origin.Y, e.Origin.Z,
			e.Intensity, e.CreatedAt, string(propsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", e.ID, err)
		}
	}
	for _, id := range r.Expired {
		if _, err := tx.Exec(
			"UPDATE events SET expired_cycle = ? WHERE run_id = ? AND id = ?",
			cycle, runID, id,
		); err != nil {
			return fmt.Errorf("expire event %d: %w", id, err)
		}
	}

	if len(r.Recognitions) > 0 {
		stmt, err := tx.Preparex(`INSERT INTO recognitions
			(run_id, cycle, agent_id, event, certainty, matched, expected)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, rec := range r.Recognitions {
			if _, err := stmt.Exec(runID, rec.Cycle, rec.Agent, rec.Event, rec.Certainty, rec.Matched, rec.Expected); err != nil {
				return fmt.Errorf("insert recognition: %w", err)
			}
		}
	}

	s := r.Stats
	_, err = tx.Exec(`INSERT OR REPLACE INTO cycle_stats
		(run_id, cycle, duration_us, agents, live_events, created, expired, sensed, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, cycle, s.Duration.Microseconds(), s.Agents, s.LiveEvents,
		s.Created, s.Expired, s.Sensed, s.Resolved,
	)
	if err != nil {
		return fmt.Errorf("insert cycle stats: %w", err)
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// StoredEvent is an event row.
type StoredEvent struct {
	ID           uint64  `db:"id" json:"id"`
	Kind         string  `db:"kind" json:"kind"`
	OriginX      float64 `db:"origin_x" json:"origin_x"`
	OriginY      float64 `db:"origin_y" json:"origin_y"`
	OriginZ      float64 `db:"origin_z" json:"origin_z"`
	Intensity    float64 `db:"intensity" json:"intensity"`
	CreatedCycle uint64  `db:"created_cycle" json:"created_cycle"`
	ExpiredCycle *uint64 `db:"expired_cycle" json:"expired_cycle,omitempty"`
}

// Events returns a run's events in creation order.
func (db *DB) Events(runID string) ([]StoredEvent, error) {
	var evs []StoredEvent
	err := db.conn.Select(&evs, `SELECT id, kind, origin_x, origin_y, origin_z, intensity,
		created_cycle, expired_cycle FROM events WHERE run_id = ? ORDER BY id`, runID)
	return evs, err
}

// StoredRecognition is a recognition row.
type StoredRecognition struct {
	Cycle     uint64  `db:"cycle" json:"cycle"`
	AgentID   uint64  `db:"agent_id" json:"agent_id"`
	Event     string  `db:"event" json:"event"`
	Certainty float64 `db:"certainty" json:"certainty"`
	Matched   int     `db:"matched" json:"matched"`
	Expected  int     `db:"expected" json:"expected"`
}

// Recognitions returns up to limit of a run's latest recognitions of one
// event (all events when event is empty), newest first.
func (db *DB) Recognitions(runID, event string, limit int) ([]StoredRecognition, error) {
	var recs []StoredRecognition
	err := db.conn.Select(&recs, `SELECT cycle, agent_id, event, certainty, matched, expected
		FROM recognitions WHERE run_id = ? AND (? = '' OR event = ?)
		ORDER BY id DESC LIMIT ?`, runID, event, event, limit)
	return recs, err
}

// EventTally counts recognitions per event name over a run.
type EventTally struct {
	Event string  `db:"event" json:"event"`
	Count int     `db:"n" json:"count"`
	Avg   float64 `db:"avg_certainty" json:"avg_certainty"`
}

// Tally returns per-event recognition counts, most recognized first.
func (db *DB) Tally(runID string) ([]EventTally, error) {
	var out []EventTally
	err := db.conn.Select(&out, `SELECT event, COUNT(*) AS n, AVG(certainty) AS avg_certainty
		FROM recognitions WHERE run_id = ? GROUP BY event ORDER BY n DESC, event`, runID)
	return out, err
}

// StoredStats is a cycle_stats row.
type StoredStats struct {
	Cycle      uint64 `db:"cycle" json:"cycle"`
	DurationUS int64  `db:"duration_us" json:"duration_us"`
	Agents     int    `db:"agents" json:"agents"`
	LiveEvents int    `db:"live_events" json:"live_events"`
	Created    int    `db:"created" json:"created"`
	Expired    int    `db:"expired" json:"expired"`
	Sensed     int    `db:"sensed" json:"sensed"`
	Resolved   int    `db:"resolved" json:"resolved"`
}

// Stats returns up to limit of a run's latest cycle stats, oldest first.
func (db *DB) Stats(runID string, limit int) ([]StoredStats, error) {
	var rows []StoredStats
	err := db.conn.Select(&rows, `SELECT * FROM (
		SELECT cycle, duration_us, agents, live_events, created, expired, sensed, resolved
		FROM cycle_stats WHERE run_id = ? ORDER BY cycle DESC LIMIT ?) ORDER BY cycle`, runID, limit)
	return rows, err
}

// Recorder stores every completed cycle of one run.
type Recorder struct {
	db    *DB
	runID string
}

// Recorder returns an engine observer writing into runID.
func (db *DB) Recorder(runID string) *Recorder {
	return &Recorder{db: db, runID: runID}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string {
	return r.runID
}

// ObserveCycle implements engine.Observer.
func (r *Recorder) ObserveCycle(rep *engine.CycleReport) error {
	if err := r.db.SaveCycle(r.runID, rep); err != nil {
		return fmt.Errorf("save cycle %d: %w", rep.Stats.Cycle, err)
	}
	return nil
}

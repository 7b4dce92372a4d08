// Package journal keeps an append-only SQLite audit trail of store
// mutations.
//
// A Journal is a store.Observer: every successful mutation becomes one row.
// The store never reads the journal back; it exists so that what happened
// during an in-memory run can be inspected afterwards (tm log). Each opened
// Journal tags its rows with a fresh run id so several runs can share a file.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/trialmem/pkg/store"

	_ "modernc.org/sqlite"
)

// Entry is one journal row.
type Entry struct {
	ID           int64          `json:"id"`
	RunID        string         `json:"run_id"`
	Seq          uint64         `json:"seq"`
	Op           store.Op       `json:"op"`
	ExperimentID int64          `json:"experiment_id"`
	TrialID      int64          `json:"trial_id"`
	Payload      map[string]any `json:"payload,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Journal manages the SQLite file in WAL mode.
type Journal struct {
	db     *sql.DB
	runID  string
	logger *slog.Logger
	retry  backoff
}

// Option configures a Journal.
type Option func(*Journal)

// WithLogger sets the logger used to report failed appends from Observe.
func WithLogger(l *slog.Logger) Option {
	return func(j *Journal) { j.logger = l }
}

// Open opens (or creates) the journal database and initializes the schema.
func Open(path string, opts ...Option) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{
		db:     db,
		runID:  uuid.NewString(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		retry:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error { return j.db.Close() }

// RunID identifies the rows written through this Journal.
func (j *Journal) RunID() string { return j.runID }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT NOT NULL,
		seq           INTEGER NOT NULL,
		op            TEXT NOT NULL,
		experiment_id INTEGER NOT NULL,
		trial_id      INTEGER NOT NULL DEFAULT -1,
		payload       TEXT,
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_experiment ON events(experiment_id, id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append writes e and returns its row id.
func (j *Journal) Append(ctx context.Context, e store.Event) (int64, error) {
	var payload sql.NullString
	if len(e.Payload) > 0 {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return 0, fmt.Errorf("encode payload for %s: %w", e.Op, err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	var id int64
	err := j.retry.do(ctx, func() error {
		res, err := j.db.ExecContext(ctx,
			`INSERT INTO events (run_id, seq, op, experiment_id, trial_id, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			j.runID, e.Seq, string(e.Op), e.ExperimentID, e.TrialID, payload,
			e.Time.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Observe implements store.Observer. Failures are logged, not returned: the
// store's operation has already succeeded.
func (j *Journal) Observe(e store.Event) {
	if _, err := j.Append(context.Background(), e); err != nil {
		j.logger.Error("journal append failed", "op", e.Op, "seq", e.Seq, "error", err)
	}
}

// ListEvents returns rows with id > sinceID in id order. A non-positive
// limit means 100.
func (j *Journal) ListEvents(ctx context.Context, sinceID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, seq, op, experiment_id, trial_id, COALESCE(payload, ''), created_at
		 FROM events WHERE id > ? ORDER BY id ASC LIMIT ?`,
		sinceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ListRunEvents returns the rows of one run in store serialization order.
func (j *Journal) ListRunEvents(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, run_id, seq, op, experiment_id, trial_id, COALESCE(payload, ''), created_at
		 FROM events WHERE run_id = ? ORDER BY seq ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// CountEvents returns the total number of rows.
func (j *Journal) CountEvents(ctx context.Context) int64 {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0
	}
	return n
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			op         string
			payload    string
			createdStr string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &op, &e.ExperimentID, &e.TrialID,
			&payload, &createdStr); err != nil {
			return nil, err
		}
		e.Op = store.Op(op)
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
				return nil, fmt.Errorf("decode payload of event %d: %w", e.ID, err)
			}
		}
		var err error
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at for event %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time check that *Journal can observe a store.
var _ store.Observer = (*Journal)(nil)

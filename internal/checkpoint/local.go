package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const localMigrate = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	date_key   TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_date ON snapshots(date_key, updated_at);
`

// LocalStore is the sqlite snapshot archive. It backs the runs listing and
// serves reads when object storage is unreachable.
type LocalStore struct {
	db  *sql.DB
	now func() time.Time
}

// RunSummary is one row of the archive listing.
type RunSummary struct {
	DateKey   string
	RunID     string
	UpdatedAt time.Time
	Messages  int
	Partners  int
}

// NewLocalStore opens (or creates) the sqlite archive at path.
func NewLocalStore(path string) (*LocalStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open local store")
	}
	if _, err := db.Exec(localMigrate); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "checkpoint: migrate local store")
	}
	return &LocalStore{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (l *LocalStore) Close() error { return l.db.Close() }

// Write implements Store.
func (l *LocalStore) Write(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal snapshot")
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, date_key, run_id, updated_at, payload) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), snap.DateKey, snap.RunID, l.now().UTC(), string(payload),
	)
	if err != nil {
		return eris.Wrapf(err, "checkpoint: insert snapshot %s", snap.DateKey)
	}
	return nil
}

// ReadLatest implements Store.
func (l *LocalStore) ReadLatest(ctx context.Context, dateKey string) (*Snapshot, error) {
	var payload string
	err := l.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE date_key = ? ORDER BY updated_at DESC LIMIT 1`,
		dateKey,
	).Scan(&payload)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "checkpoint: query snapshot %s", dateKey)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, eris.Wrapf(err, "checkpoint: decode snapshot %s", dateKey)
	}
	return &snap, nil
}

// ListRuns returns the newest limit archive entries, most recent first.
func (l *LocalStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT date_key, run_id, updated_at, payload FROM snapshots ORDER BY updated_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run     RunSummary
			payload string
		)
		if err := rows.Scan(&run.DateKey, &run.RunID, &run.UpdatedAt, &payload); err != nil {
			return nil, eris.Wrap(err, "checkpoint: scan run")
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(payload), &snap); err == nil {
			run.Messages = len(snap.Messages)
			run.Partners = len(snap.Partners)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

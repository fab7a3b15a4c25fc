package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/topicflow/pkg/topicflow/internalerr"
	"github.com/cognicore/topicflow/pkg/topicflow/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens a SQLite database with WAL mode enabled and creates the
// schema if needed.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open", path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, storageErr("open", path, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, storageErr("init schema", path, err)
	}

	return &sqliteStore{db: db, path: path}, nil
}

func storageErr(op, path string, err error) error {
	return &internalerr.StorageError{Op: op, Path: path, Err: err}
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS tokens (
	id INTEGER PRIMARY KEY,
	token TEXT UNIQUE NOT NULL,
	df INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dictionary_meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT NOT NULL,
	partition TEXT,
	processed INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	state TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// LoadTokens returns every dictionary entry ordered by id
func (s *sqliteStore) LoadTokens(ctx context.Context) ([]store.Token, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, token, df FROM tokens ORDER BY id`)
	if err != nil {
		return nil, storageErr("load tokens", s.path, err)
	}
	defer rows.Close()

	var tokens []store.Token
	for rows.Next() {
		var t store.Token
		if err := rows.Scan(&t.ID, &t.Token, &t.DF); err != nil {
			return nil, storageErr("load tokens", s.path, err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load tokens", s.path, err)
	}
	return tokens, nil
}

// Counters returns the saved totals. ok is false when no dictionary has
// been saved yet.
func (s *sqliteStore) Counters(ctx context.Context) (store.Counters, bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM dictionary_meta`)
	if err != nil {
		return store.Counters{}, false, storageErr("load counters", s.path, err)
	}
	defer rows.Close()

	var c store.Counters
	found := false
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return store.Counters{}, false, storageErr("load counters", s.path, err)
		}
		found = true
		switch key {
		case "num_docs":
			c.NumDocs = value
		case "num_pos":
			c.NumPos = value
		case "num_nnz":
			c.NumNNZ = value
		}
	}
	if err := rows.Err(); err != nil {
		return store.Counters{}, false, storageErr("load counters", s.path, err)
	}
	return c, found, nil
}

// SaveDictionary upserts the changed tokens and the totals in one transaction
func (s *sqliteStore) SaveDictionary(ctx context.Context, changed []store.Token, c store.Counters) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("save dictionary", s.path, err)
	}
	defer tx.Rollback()

	if len(changed) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO tokens (id, token, df) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET df=excluded.df`)
		if err != nil {
			return storageErr("save dictionary", s.path, err)
		}
		defer stmt.Close()
		for _, t := range changed {
			if _, err := stmt.ExecContext(ctx, t.ID, t.Token, t.DF); err != nil {
				return storageErr("save dictionary", s.path, fmt.Errorf("token %q: %w", t.Token, err))
			}
		}
	}

	for key, value := range map[string]int64{
		"num_docs": c.NumDocs,
		"num_pos":  c.NumPos,
		"num_nnz":  c.NumNNZ,
	} {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO dictionary_meta (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value); err != nil {
			return storageErr("save dictionary", s.path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storageErr("save dictionary", s.path, err)
	}
	return nil
}

// RecordRun inserts or updates a run
func (s *sqliteStore) RecordRun(ctx context.Context, r store.Run) error {
	const stmt = `
INSERT INTO runs (id, command, partition, processed, skipped, state, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	processed=excluded.processed,
	skipped=excluded.skipped,
	state=excluded.state,
	finished_at=excluded.finished_at;
`
	var finished any
	if !r.Finished.IsZero() {
		finished = r.Finished.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, stmt,
		r.ID,
		r.Command,
		r.Partition,
		r.Processed,
		r.Skipped,
		r.State,
		r.Started.UTC().Format(time.RFC3339Nano),
		finished,
	)
	if err != nil {
		return storageErr("record run", s.path, err)
	}
	return nil
}

// Runs returns the most recent runs first
func (s *sqliteStore) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, command, partition, processed, skipped, state, started_at, finished_at
FROM runs
ORDER BY id DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("load runs", s.path, err)
	}
	defer rows.Close()

	var runs []store.Run
	for rows.Next() {
		var r store.Run
		var partition, finished sql.NullString
		var started string
		if err := rows.Scan(&r.ID, &r.Command, &partition, &r.Processed, &r.Skipped, &r.State, &started, &finished); err != nil {
			return nil, storageErr("load runs", s.path, err)
		}
		r.Partition = partition.String
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			r.Finished, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load runs", s.path, err)
	}
	return runs, nil
}

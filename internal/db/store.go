package db

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-sqlite3"
)

// Metadata keys written after each sync run.
const (
	MetaLastRunAt       = "last_run_at"
	MetaLastRunID       = "last_run_id"
	MetaLastFound       = "last_run_found"
	MetaLastTransferred = "last_run_transferred"
	MetaLastFailed      = "last_run_failed"
)

type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the ledger database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "opening ledger database %s", path)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "migrating ledger database %s", path)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_bookmarks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		transferred_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_processed_bookmarks_transferred_at ON processed_bookmarks(transferred_at);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Entries returns every ledger row, most recently transferred first.
func (s *Store) Entries() ([]LedgerEntry, error) {
	rows, err := s.db.Query(`SELECT id, url, author, transferred_at FROM processed_bookmarks ORDER BY transferred_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var transferredAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.URL, &e.Author, &transferredAt); err != nil {
			return nil, err
		}
		if transferredAt.Valid {
			e.TransferredAt = transferredAt.Time
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReplaceEntries overwrites the stored set with entries in one transaction.
func (s *Store) ReplaceEntries(entries []LedgerEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM processed_bookmarks`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO processed_bookmarks (id, url, author, transferred_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		var transferredAt interface{}
		if !e.TransferredAt.IsZero() {
			transferredAt = e.TransferredAt.UTC()
		}
		if _, err := stmt.Exec(e.ID, e.URL, e.Author, transferredAt); err != nil {
			return errors.Wrapf(err, "inserting ledger entry %s", e.ID)
		}
	}

	return tx.Commit()
}

// Delete removes one entry and reports whether it existed.
func (s *Store) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM processed_bookmarks WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM processed_bookmarks`).Scan(&count)
	return count, err
}

func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value)
	return err
}

// LastRunAt returns when the last sync run finished, or the zero time.
func (s *Store) LastRunAt() (time.Time, error) {
	v, err := s.GetMetadata(MetaLastRunAt)
	if err != nil || v == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

// RunRecord summarizes one finished sync run.
type RunRecord struct {
	ID          string
	At          time.Time
	Found       int
	Transferred int
	Failed      int
}

func (s *Store) RecordRun(r RunRecord) error {
	values := map[string]string{
		MetaLastRunID:       r.ID,
		MetaLastRunAt:       r.At.UTC().Format(time.RFC3339),
		MetaLastFound:       strconv.Itoa(r.Found),
		MetaLastTransferred: strconv.Itoa(r.Transferred),
		MetaLastFailed:      strconv.Itoa(r.Failed),
	}
	for k, v := range values {
		if err := s.SetMetadata(k, v); err != nil {
			return errors.Wrapf(err, "recording %s", k)
		}
	}
	return nil
}

// LastRun returns the most recent run record; ok is false if no run has
// been recorded yet.
func (s *Store) LastRun() (r RunRecord, ok bool, err error) {
	r.At, err = s.LastRunAt()
	if err != nil || r.At.IsZero() {
		return RunRecord{}, false, err
	}
	if r.ID, err = s.GetMetadata(MetaLastRunID); err != nil {
		return RunRecord{}, false, err
	}
	for key, dst := range map[string]*int{
		MetaLastFound:       &r.Found,
		MetaLastTransferred: &r.Transferred,
		MetaLastFailed:      &r.Failed,
	} {
		v, err := s.GetMetadata(key)
		if err != nil {
			return RunRecord{}, false, err
		}
		if v == "" {
			continue
		}
		if *dst, err = strconv.Atoi(v); err != nil {
			return RunRecord{}, false, errors.Wrapf(err, "parsing %s", key)
		}
	}
	return r, true, nil
}

// isUnreadable reports whether err means the file exists but is not a
// usable SQLite database.
func isUnreadable(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrNotADB || sqliteErr.Code == sqlite3.ErrCorrupt
}

package db

import (
	"os"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/bookmarksync/internal/logger"
)

// Ledger is the set of bookmark IDs already written to the destination.
// It is owned by a single sync run and is not safe for concurrent use.
type Ledger struct {
	entries map[string]LedgerEntry
}

// NewLedger returns a ledger holding ids with no extra metadata.
func NewLedger(ids ...string) *Ledger {
	l := &Ledger{entries: make(map[string]LedgerEntry, len(ids))}
	for _, id := range ids {
		l.entries[id] = LedgerEntry{ID: id}
	}
	return l
}

func (l *Ledger) Has(id string) bool {
	_, ok := l.entries[id]
	return ok
}

// Add records b as transferred at the given time.
func (l *Ledger) Add(b Bookmark, at time.Time) {
	l.entries[b.ID] = LedgerEntry{
		ID:            b.ID,
		URL:           b.URL,
		Author:        b.Author,
		TransferredAt: at,
	}
}

func (l *Ledger) Len() int {
	return len(l.entries)
}

// IDs returns the IDs in the ledger in sorted order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns the ledger contents ordered by ID.
func (l *Ledger) Entries() []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(l.entries))
	for _, id := range l.IDs() {
		entries = append(entries, l.entries[id])
	}
	return entries
}

// LoadLedger reads the ledger at path. It never fails: a missing file
// yields an empty ledger, and any read error is logged and also yields an
// empty ledger. A file that is not a readable database is moved aside to
// path+".corrupt" so the next save can start fresh.
func LoadLedger(path string, log *zap.SugaredLogger) *Ledger {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debugw("No ledger yet, starting empty", logger.FieldPath, path)
		return NewLedger()
	}

	entries, err := readEntries(path)
	if err != nil {
		log.Errorw("Failed to load ledger, starting empty",
			logger.FieldOperation, "ledger.load",
			logger.FieldPath, path,
			logger.FieldError, err)
		if isUnreadable(err) {
			quarantine(path, log)
		}
		return NewLedger()
	}

	l := &Ledger{entries: make(map[string]LedgerEntry, len(entries))}
	for _, e := range entries {
		l.entries[e.ID] = e
	}
	log.Debugw("Loaded ledger", logger.FieldPath, path, logger.FieldCount, l.Len())
	return l
}

// SaveLedger overwrites the stored ledger at path with l. Errors are logged
// and returned; callers treat them as non-fatal.
func SaveLedger(path string, l *Ledger, log *zap.SugaredLogger) error {
	err := writeEntries(path, l.Entries())
	if err != nil {
		log.Errorw("Failed to save ledger",
			logger.FieldOperation, "ledger.save",
			logger.FieldPath, path,
			logger.FieldCount, l.Len(),
			logger.FieldError, err)
		return err
	}
	log.Debugw("Saved ledger", logger.FieldPath, path, logger.FieldCount, l.Len())
	return nil
}

func readEntries(path string) ([]LedgerEntry, error) {
	store, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Entries()
}

func writeEntries(path string, entries []LedgerEntry) error {
	store, err := OpenStore(path)
	if err != nil {
		return err
	}
	if err := store.ReplaceEntries(entries); err != nil {
		store.Close()
		return errors.Wrap(err, "writing ledger entries")
	}
	return store.Close()
}

func quarantine(path string, log *zap.SugaredLogger) {
	dest := path + ".corrupt"
	if err := os.Rename(path, dest); err != nil {
		log.Warnw("Could not move unreadable ledger aside",
			logger.FieldOperation, "ledger.quarantine",
			logger.FieldPath, path,
			logger.FieldError, err)
		return
	}
	log.Warnw("Moved unreadable ledger aside", logger.FieldPath, dest)
}

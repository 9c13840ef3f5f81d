package transfer

import (
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/bookmarksync/internal/db"
)

type fakeSource struct {
	items []db.Bookmark
	err   error
	calls int
}

func (f *fakeSource) Name() string    { return "fake" }
func (f *fakeSource) Available() bool { return true }

func (f *fakeSource) Bookmarks(ctx context.Context) iter.Seq2[db.Bookmark, error] {
	f.calls++
	return func(yield func(db.Bookmark, error) bool) {
		for _, b := range f.items {
			if !yield(b, nil) {
				return
			}
		}
		if f.err != nil {
			yield(db.Bookmark{}, f.err)
		}
	}
}

// fakeDestination is both the index and the writer: created pages become
// visible to the next ExistingURLs call.
type fakeDestination struct {
	urls      db.URLSet
	indexDown bool
	fail      map[string]bool
	created   []db.Bookmark
	summaries []string
}

func newFakeDestination(urls ...string) *fakeDestination {
	return &fakeDestination{urls: db.NewURLSet(urls...), fail: map[string]bool{}}
}

func (f *fakeDestination) ExistingURLs(ctx context.Context) db.URLSet {
	if f.indexDown {
		return db.NewURLSet()
	}
	out := db.NewURLSet()
	for u := range f.urls {
		out.Add(u)
	}
	return out
}

func (f *fakeDestination) Create(ctx context.Context, b db.Bookmark, summary string) bool {
	if f.fail[b.ID] {
		return false
	}
	f.created = append(f.created, b)
	f.summaries = append(f.summaries, summary)
	f.urls.Add(b.URL)
	return true
}

func (f *fakeDestination) createdIDs() []string {
	ids := make([]string, 0, len(f.created))
	for _, b := range f.created {
		ids = append(ids, b.ID)
	}
	return ids
}

type fakeSummarizer struct {
	err error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, author, content string) (*SummaryResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &SummaryResult{Summary: "summary of " + content, Keywords: "go"}, nil
}

var errBoom = errors.New("boom")

func bookmark(id string) db.Bookmark {
	return db.Bookmark{ID: id, Text: "post " + id, URL: db.StatusURL(id), Author: "author" + id}
}

func bookmarks(ids ...string) []db.Bookmark {
	out := make([]db.Bookmark, 0, len(ids))
	for _, id := range ids {
		out = append(out, bookmark(id))
	}
	return out
}

func observedLogger(t *testing.T) (*zap.SugaredLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func ledgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

package sources

import (
	"context"
	"iter"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/bookmarksync/internal/db"
)

// fakeSource yields items in order, then err if set.
type fakeSource struct {
	items []db.Bookmark
	err   error
}

func (f *fakeSource) Name() string    { return "fake" }
func (f *fakeSource) Available() bool { return true }

func (f *fakeSource) Bookmarks(ctx context.Context) iter.Seq2[db.Bookmark, error] {
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

func bookmark(id string) db.Bookmark {
	return db.Bookmark{ID: id, Text: "post " + id, URL: db.StatusURL(id), Author: "user" + id}
}

func observedLogger(t *testing.T) (*zap.SugaredLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func ids(bookmarks []db.Bookmark) []string {
	out := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, b.ID)
	}
	return out
}

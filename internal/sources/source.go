package sources

import (
	"context"
	"iter"

	"github.com/user/bookmarksync/internal/db"
)

// Source defines the interface for bookmark sources
type Source interface {
	// Name returns the source identifier (x, bird)
	Name() string
	// Available checks whether the source can be used on this machine
	Available() bool
	// Bookmarks lazily lists every bookmark currently saved, page by page.
	// The sequence is finite and cannot be restarted. If fetching fails an
	// error is yielded once and the sequence ends; bookmarks yielded before
	// the failure stay valid.
	Bookmarks(ctx context.Context) iter.Seq2[db.Bookmark, error]
}

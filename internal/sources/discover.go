package sources

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/user/bookmarksync/internal/db"
	"github.com/user/bookmarksync/internal/logger"
)

// FetchNew lazily yields the bookmarks from src that still need to be
// transferred: those whose ID is not in the ledger and whose URL is not
// already in the destination. Source order is preserved.
//
// A source failure is logged and ends the sequence; bookmarks yielded
// before it are not taken back. The ledger is read on every item, so IDs a
// caller adds while ranging are honored for the rest of the sequence.
func FetchNew(ctx context.Context, src Source, ledger *db.Ledger, existing db.URLSet, log *zap.SugaredLogger) iter.Seq[db.Bookmark] {
	return func(yield func(db.Bookmark) bool) {
		seen := make(map[string]struct{})
		var listed, skipped int

		for b, err := range src.Bookmarks(ctx) {
			if err != nil {
				log.Errorw("Failed to fetch bookmarks",
					logger.FieldOperation, "source.fetch",
					logger.FieldSource, src.Name(),
					logger.FieldCount, listed,
					logger.FieldError, err)
				return
			}
			listed++

			if _, dup := seen[b.ID]; dup {
				skipped++
				continue
			}
			seen[b.ID] = struct{}{}

			if ledger.Has(b.ID) || existing.Has(b.URL) {
				skipped++
				continue
			}

			if !yield(b) {
				return
			}
		}

		log.Debugw("Finished listing bookmarks",
			logger.FieldSource, src.Name(),
			logger.FieldCount, listed,
			"skipped", skipped)
	}
}

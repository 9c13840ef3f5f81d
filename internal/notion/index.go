package notion

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jomei/notionapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/bookmarksync/internal/db"
	"github.com/user/bookmarksync/internal/logger"
)

const queryPageSize = 100

// Index reads the URLs already stored in the destination database.
type Index struct {
	databases  DatabaseQuerier
	databaseID notionapi.DatabaseID
	urlProp    string
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
}

func NewIndex(databases DatabaseQuerier, databaseID notionapi.DatabaseID, urlProp string, limiter *rate.Limiter, log *zap.SugaredLogger) *Index {
	if limiter == nil {
		limiter = newLimiter(0)
	}
	return &Index{
		databases:  databases,
		databaseID: databaseID,
		urlProp:    urlProp,
		limiter:    limiter,
		log:        log,
	}
}

// ExistingURLs pages through the whole database and collects the value of
// the URL property of every page that has one. Any query failure is logged
// and yields an empty set, disabling this dedup signal for the run.
func (ix *Index) ExistingURLs(ctx context.Context) db.URLSet {
	urls, pages, err := ix.collect(ctx)
	if err != nil {
		ix.log.Errorw("Failed to read existing destination URLs, continuing without them",
			logger.FieldOperation, "notion.index",
			logger.FieldDatabase, string(ix.databaseID),
			logger.FieldError, err)
		return db.NewURLSet()
	}

	ix.log.Debugw("Indexed destination",
		logger.FieldDatabase, string(ix.databaseID),
		"pages", pages,
		logger.FieldCount, len(urls))
	return urls
}

func (ix *Index) collect(ctx context.Context) (db.URLSet, int, error) {
	urls := db.NewURLSet()
	pages := 0
	var cursor notionapi.Cursor

	for {
		if err := ix.limiter.Wait(ctx); err != nil {
			return nil, pages, err
		}

		resp, err := ix.databases.Query(ctx, ix.databaseID, &notionapi.DatabaseQueryRequest{
			StartCursor: cursor,
			PageSize:    queryPageSize,
		})
		if err != nil {
			return nil, pages, errors.Wrapf(err, "querying database %s", ix.databaseID)
		}

		for _, page := range resp.Results {
			pages++
			if u := pageURL(page, ix.urlProp); u != "" {
				urls.Add(u)
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return urls, pages, nil
		}
		cursor = resp.NextCursor
	}
}

// pageURL returns the value of the named URL property, or "" when the page
// has no such property or it is of another type.
func pageURL(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok || prop == nil {
		return ""
	}
	if p, ok := prop.(*notionapi.URLProperty); ok {
		return p.URL
	}
	return ""
}

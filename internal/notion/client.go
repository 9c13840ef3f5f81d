// Package notion reads and writes the Notion database that bookmarks are
// mirrored into.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/bookmarksync/internal/config"
)

// DatabaseQuerier is the slice of the Notion database API the index needs.
type DatabaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

// PageCreator is the slice of the Notion page API the writer needs.
type PageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Connect builds an Index and a Writer for the configured database. Both
// share one request limiter so their combined rate stays under the limit.
func Connect(cfg config.NotionConfig, log *zap.SugaredLogger) (*Index, *Writer) {
	client := notionapi.NewClient(notionapi.Token(cfg.Token))
	limiter := newLimiter(cfg.RequestsPerSecond)
	dbID := notionapi.DatabaseID(cfg.DatabaseID)

	index := NewIndex(client.Database, dbID, cfg.Properties.URL, limiter, log)
	writer := NewWriter(client.Page, dbID, cfg.Properties, limiter, log)
	return index, writer
}

func newLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
}

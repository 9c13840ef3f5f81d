package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/bookmarksync/internal/config"
)

// fakeDatabase serves query results keyed by start cursor.
type fakeDatabase struct {
	pages   map[notionapi.Cursor]*notionapi.DatabaseQueryResponse
	err     error
	queries []notionapi.DatabaseQueryRequest
}

func (f *fakeDatabase) Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.queries = append(f.queries, *req)
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.pages[req.StartCursor]
	if !ok {
		return &notionapi.DatabaseQueryResponse{}, nil
	}
	return resp, nil
}

type fakePages struct {
	requests []*notionapi.PageCreateRequest
	err      error
}

func (f *fakePages) Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &notionapi.Page{ID: notionapi.ObjectID("page-1")}, nil
}

func urlPage(u string) notionapi.Page {
	return notionapi.Page{Properties: notionapi.Properties{
		"URL": &notionapi.URLProperty{URL: u},
	}}
}

func observedLogger(t *testing.T) (*zap.SugaredLogger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func defaultProps() config.PropertyNames {
	return config.PropertyNames{
		Title:      "Title",
		URL:        "URL",
		Author:     "Author",
		Date:       "Date",
		Engagement: "Engagement",
		Summary:    "Summary",
	}
}

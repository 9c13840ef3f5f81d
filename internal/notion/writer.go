package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/bookmarksync/internal/config"
	"github.com/user/bookmarksync/internal/db"
	"github.com/user/bookmarksync/internal/logger"
)

const (
	titleLength = 100
	// Notion rejects text objects longer than this.
	maxTextLength = 2000
	ellipsis      = "..."
)

// Writer creates one destination page per bookmark.
type Writer struct {
	pages      PageCreator
	databaseID notionapi.DatabaseID
	props      config.PropertyNames
	limiter    *rate.Limiter
	log        *zap.SugaredLogger
}

func NewWriter(pages PageCreator, databaseID notionapi.DatabaseID, props config.PropertyNames, limiter *rate.Limiter, log *zap.SugaredLogger) *Writer {
	if limiter == nil {
		limiter = newLimiter(0)
	}
	return &Writer{
		pages:      pages,
		databaseID: databaseID,
		props:      props,
		limiter:    limiter,
		log:        log,
	}
}

// Create writes b as a new page and reports whether it succeeded. Failures
// are logged, never returned. summary is optional.
func (w *Writer) Create(ctx context.Context, b db.Bookmark, summary string) bool {
	if err := w.limiter.Wait(ctx); err != nil {
		w.logFailure(b, err)
		return false
	}

	_, err := w.pages.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: w.databaseID,
		},
		Properties: w.Properties(b, summary),
	})
	if err != nil {
		w.logFailure(b, err)
		return false
	}
	return true
}

func (w *Writer) logFailure(b db.Bookmark, err error) {
	w.log.Errorw("Failed to create destination page",
		logger.FieldOperation, "notion.create",
		logger.FieldBookmarkID, b.ID,
		logger.FieldURL, b.URL,
		logger.FieldError, err)
}

// Properties maps a bookmark onto the database's properties.
func (w *Writer) Properties(b db.Bookmark, summary string) notionapi.Properties {
	props := notionapi.Properties{
		w.props.Title: &notionapi.TitleProperty{
			Title: richText(Title(b.Text)),
		},
		w.props.URL: &notionapi.URLProperty{
			URL: b.URL,
		},
		w.props.Author: &notionapi.RichTextProperty{
			RichText: richText(b.Author),
		},
		w.props.Engagement: &notionapi.RichTextProperty{
			RichText: richText(EngagementSummary(b.Engagement)),
		},
	}

	if !b.CreatedAt.IsZero() {
		start := notionapi.Date(b.CreatedAt)
		props[w.props.Date] = &notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		}
	}

	if summary != "" && w.props.Summary != "" {
		props[w.props.Summary] = &notionapi.RichTextProperty{
			RichText: richText(summary),
		}
	}

	return props
}

// Title is the first 100 characters of text followed by "...". The marker
// is appended even when nothing was cut.
func Title(text string) string {
	return truncateRunes(text, titleLength) + ellipsis
}

// EngagementSummary renders like and repost counts for display.
func EngagementSummary(e db.Engagement) string {
	return fmt.Sprintf("♥ %d | RT %d", e.Likes, e.Retweets)
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: truncateRunes(content, maxTextLength)}},
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Package transfer runs one synchronization pass from a bookmark source to
// the destination database.
package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/bookmarksync/internal/db"
	"github.com/user/bookmarksync/internal/logger"
	"github.com/user/bookmarksync/internal/sources"
)

// Index reports the URLs already present in the destination.
type Index interface {
	ExistingURLs(ctx context.Context) db.URLSet
}

// Writer creates one destination record and reports success.
type Writer interface {
	Create(ctx context.Context, b db.Bookmark, summary string) bool
}

// Summarizer produces an optional summary for a bookmark.
type Summarizer interface {
	Summarize(ctx context.Context, author, content string) (*SummaryResult, error)
}

// Options configures one run.
type Options struct {
	DryRun bool // Discover candidates without writing anything
	Limit  int  // Stop after this many candidates (0 = no limit)
}

// Outcome of a single candidate, passed to a ProgressFunc.
type Outcome int

const (
	OutcomeTransferred Outcome = iota
	OutcomeFailed
	OutcomeSkipped // dry run
)

// ProgressFunc is called once per candidate after it has been handled.
// n counts candidates from 1.
type ProgressFunc func(n int, b db.Bookmark, outcome Outcome)

// Result summarizes a run.
type Result struct {
	RunID       string
	Found       int
	Transferred int
	Failed      int
	DryRun      bool
	LedgerSaved bool
	Interrupted bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

type Engine struct {
	source     sources.Source
	index      Index
	writer     Writer
	summarizer Summarizer
	ledgerPath string
	progress   ProgressFunc
	now        func() time.Time
	log        *zap.SugaredLogger
}

type EngineOption func(*Engine)

// WithSummarizer attaches a summarizer; without one no summaries are written.
func WithSummarizer(s Summarizer) EngineOption {
	return func(e *Engine) { e.summarizer = s }
}

func WithProgress(fn ProgressFunc) EngineOption {
	return func(e *Engine) { e.progress = fn }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source sources.Source, index Index, writer Writer, ledgerPath string, log *zap.SugaredLogger, opts ...EngineOption) *Engine {
	e := &Engine{
		source:     source,
		index:      index,
		writer:     writer,
		ledgerPath: ledgerPath,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one pass: load the ledger, index the destination, transfer
// every candidate the source yields, then save the ledger once. Only a
// successful write adds a bookmark to the ledger; a failed one is retried
// on the next run. Every external failure is logged and absorbed, so Run
// always completes.
func (e *Engine) Run(ctx context.Context, opts Options) Result {
	res := Result{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		StartedAt: e.now(),
	}
	log := e.log.With(logger.FieldRunID, res.RunID)

	log.Infow("Starting bookmark transfer", logger.FieldSource, e.source.Name(), "dry_run", opts.DryRun)

	ledger := db.LoadLedger(e.ledgerPath, log)
	existing := e.index.ExistingURLs(ctx)
	log.Infow("Loaded dedup state",
		"ledger_ids", ledger.Len(),
		"destination_urls", len(existing))

	for b := range sources.FetchNew(ctx, e.source, ledger, existing, log) {
		if opts.Limit > 0 && res.Found >= opts.Limit {
			log.Infow("Reached candidate limit", logger.FieldCount, opts.Limit)
			break
		}
		res.Found++

		outcome := e.transfer(ctx, log, ledger, b, opts)
		switch outcome {
		case OutcomeTransferred:
			res.Transferred++
		case OutcomeFailed:
			res.Failed++
		}
		if e.progress != nil {
			e.progress(res.Found, b, outcome)
		}

		if ctx.Err() != nil {
			log.Warnw("Transfer interrupted", logger.FieldError, ctx.Err())
			res.Interrupted = true
			break
		}
	}

	if !opts.DryRun {
		res.LedgerSaved = db.SaveLedger(e.ledgerPath, ledger, log) == nil
		e.recordRun(log, res)
	}

	res.FinishedAt = e.now()
	log.Infow("Transfer complete",
		"found", res.Found,
		"transferred", res.Transferred,
		"failed", res.Failed,
		logger.FieldDurationMS, res.FinishedAt.Sub(res.StartedAt).Milliseconds())
	return res
}

func (e *Engine) transfer(ctx context.Context, log *zap.SugaredLogger, ledger *db.Ledger, b db.Bookmark, opts Options) Outcome {
	if opts.DryRun {
		log.Infow("Would transfer bookmark", logger.FieldBookmarkID, b.ID, logger.FieldURL, b.URL)
		return OutcomeSkipped
	}

	log.Debugw("Transferring bookmark", logger.FieldBookmarkID, b.ID, logger.FieldURL, b.URL)
	if !e.writer.Create(ctx, b, e.summarize(ctx, log, b)) {
		return OutcomeFailed
	}
	ledger.Add(b, e.now())
	return OutcomeTransferred
}

// summarize returns "" when no summarizer is set or it fails; a missing
// summary never blocks the transfer.
func (e *Engine) summarize(ctx context.Context, log *zap.SugaredLogger, b db.Bookmark) string {
	if e.summarizer == nil || b.Text == "" {
		return ""
	}
	result, err := e.summarizer.Summarize(ctx, b.Author, b.Text)
	if err != nil {
		log.Warnw("Summarization failed, writing without summary",
			logger.FieldOperation, "summarize",
			logger.FieldBookmarkID, b.ID,
			logger.FieldError, err)
		return ""
	}
	return result.Text()
}

func (e *Engine) recordRun(log *zap.SugaredLogger, res Result) {
	store, err := db.OpenStore(e.ledgerPath)
	if err == nil {
		err = store.RecordRun(db.RunRecord{
			ID:          res.RunID,
			At:          e.now(),
			Found:       res.Found,
			Transferred: res.Transferred,
			Failed:      res.Failed,
		})
		store.Close()
	}
	if err != nil {
		log.Warnw("Could not record run metadata",
			logger.FieldOperation, "ledger.record_run",
			logger.FieldError, err)
	}
}

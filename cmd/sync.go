package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/user/bookmarksync/internal/config"
	"github.com/user/bookmarksync/internal/db"
	"github.com/user/bookmarksync/internal/logger"
	"github.com/user/bookmarksync/internal/notion"
	"github.com/user/bookmarksync/internal/sources"
	"github.com/user/bookmarksync/internal/transfer"
)

var (
	syncDryRun    bool
	syncLimit     int
	syncSummarize bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Transfer new bookmarks to Notion",
	Long: `Fetches all current bookmarks and creates one Notion page for each bookmark
that is neither in the local ledger nor already in the database (matched by
URL). The ledger is saved once at the end of the run, including after Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		source, err := newSource(cfg)
		if err != nil {
			return err
		}

		log := logger.Named("sync")
		index, writer := notion.Connect(cfg.Notion, log)

		opts := []transfer.EngineOption{transfer.WithProgress(printProgress)}
		if syncSummarize || cfg.Summary.Enabled {
			summarizer, err := transfer.NewSummarizer(cfg.LLM)
			if err != nil {
				pterm.Warning.Printf("Summaries disabled: %v\n", err)
			} else {
				opts = append(opts, transfer.WithSummarizer(summarizer))
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if syncDryRun {
			pterm.Warning.Println("DRY RUN MODE: nothing will be written to Notion or the ledger")
		}

		engine := transfer.NewEngine(source, index, writer, cfg.LedgerPath(), log, opts...)
		result := engine.Run(ctx, transfer.Options{DryRun: syncDryRun, Limit: syncLimit})

		printSummary(result)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "List new bookmarks without writing anything")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Transfer at most this many bookmarks (0 = all)")
	syncCmd.Flags().BoolVar(&syncSummarize, "summarize", false, "Add an LLM summary to each page")
	rootCmd.AddCommand(syncCmd)
}

func newSource(cfg *config.Config) (sources.Source, error) {
	var source sources.Source
	switch cfg.Source.Backend {
	case config.BackendBird:
		source = sources.NewBirdSource()
	default:
		source = sources.NewXSource(cfg.X)
	}
	if !source.Available() {
		return nil, errors.WithHint(
			errors.Newf("bookmark source %q is not available", source.Name()),
			"install the bird CLI or set source.backend to \"api\"")
	}
	return source, nil
}

func printProgress(n int, b db.Bookmark, outcome transfer.Outcome) {
	switch outcome {
	case transfer.OutcomeTransferred:
		pterm.Success.Printf("[%d] %s\n", n, b.URL)
	case transfer.OutcomeFailed:
		pterm.Error.Printf("[%d] %s (not transferred, will retry next run)\n", n, b.URL)
	case transfer.OutcomeSkipped:
		pterm.Info.Printf("[%d] would transfer %s\n", n, b.URL)
	}
}

func printSummary(r transfer.Result) {
	pterm.Println()
	if r.Interrupted {
		pterm.Warning.Println("Interrupted; progress so far has been saved")
	}
	pterm.Info.Printf("Found %d new bookmarks\n", r.Found)
	if r.DryRun {
		return
	}
	pterm.Success.Printf("Successfully transferred %d\n", r.Transferred)
	if r.Failed > 0 {
		pterm.Warning.Printf("%d failed and will be retried on the next run\n", r.Failed)
	}
	if !r.LedgerSaved {
		pterm.Warning.Println("Ledger could not be saved; see the log for details")
	}
}

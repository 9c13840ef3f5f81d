package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/user/bookmarksync/internal/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger size and the last sync run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := db.OpenStore(cfg.LedgerPath())
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.Count()
		if err != nil {
			return err
		}
		run, ok, err := store.LastRun()
		if err != nil {
			return err
		}

		data := pterm.TableData{
			{"Ledger", cfg.LedgerPath()},
			{"Transferred bookmarks", fmt.Sprintf("%d", count)},
		}
		if ok {
			data = append(data,
				[]string{"Last run", run.At.Local().Format(time.DateTime)},
				[]string{"Last run ID", run.ID},
				[]string{"Found / transferred / failed", fmt.Sprintf("%d / %d / %d", run.Found, run.Transferred, run.Failed)},
			)
		} else {
			data = append(data, []string{"Last run", "never"})
		}

		return pterm.DefaultTable.WithData(data).Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

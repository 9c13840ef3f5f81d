package cmd

import (
	"github.com/spf13/cobra"

	"github.com/user/bookmarksync/internal/tui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse transferred bookmarks",
	Long:  "Interactive list of every bookmark in the ledger. Press / to filter, enter to open, d to forget.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return tui.Run(cfg.LedgerPath())
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

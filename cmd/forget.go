package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/user/bookmarksync/internal/db"
)

var forgetCmd = &cobra.Command{
	Use:   "forget <id>",
	Short: "Remove a bookmark from the ledger",
	Long: `Removes one bookmark ID from the ledger so the next sync considers it again.
It is only re-created if its URL is no longer present in the Notion database.`,
	Args: cobra.ExactArgs(1),
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

		removed, err := store.Delete(args[0])
		if err != nil {
			return errors.Wrapf(err, "forgetting %s", args[0])
		}
		if !removed {
			pterm.Warning.Printf("%s is not in the ledger\n", args[0])
			return nil
		}

		pterm.Success.Printf("Forgot %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

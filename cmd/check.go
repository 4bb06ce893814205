package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meko-christian/mail-watcher/internal/config"
	"github.com/meko-christian/mail-watcher/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single poll cycle and record new subjects",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig((*config.Validator).ValidatePoller)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Connecting to IMAP...")

		report := newPoller(cfg, st).RunOnce(ctx)
		if report.Err != nil {
			return fmt.Errorf("check failed after %d of %d messages: %w",
				report.Processed, report.Unseen, report.Err)
		}

		if report.Unseen == 0 {
			fmt.Println("No unread mails.")
			return nil
		}

		fmt.Printf("Processed %d unread mails: %d new subjects, %d duplicates.\n",
			report.Processed, report.Recorded, report.Duplicates)

		return nil
	},
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meko-christian/mail-watcher/internal/config"
	"github.com/meko-christian/mail-watcher/internal/store"
	"github.com/meko-christian/mail-watcher/internal/web"
)

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve the status page for an existing store without polling",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindWebFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig((*config.Validator).ValidateStatus)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		st, err := store.OpenReadOnly(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		server := web.NewServer(cfg.Web.Address(), st)
		if err := server.Listen(); err != nil {
			return err
		}

		slog.Info("Starting status page", "address", server.Addr(), "store", cfg.Store.Path)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	addWebFlags(webCmd)
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/meko-christian/mail-watcher/internal/config"
	"github.com/meko-christian/mail-watcher/internal/store"
	"github.com/meko-christian/mail-watcher/internal/watcher"
	"github.com/meko-christian/mail-watcher/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the mailbox in the background and serve the status page",
	PreRun: func(cmd *cobra.Command, _ []string) {
		bindWebFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig((*config.Validator).ValidateServe)
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := st.Close(); err != nil {
				slog.Error("Failed to close store", "error", err)
			}
		}()

		server := web.NewServer(cfg.Web.Address(), st)
		if err := server.Listen(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		poller := newPoller(cfg, st)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return poller.Run(ctx)
		})
		g.Go(func() error {
			return server.Serve(ctx)
		})

		slog.Info("Serving", "address", server.Addr(), "store", cfg.Store.Path)

		return g.Wait()
	},
}

func init() {
	addWebFlags(serveCmd)
}

func addWebFlags(c *cobra.Command) {
	c.Flags().Int("port", config.DefaultWebPort, "Port to bind the status page to")
	c.Flags().String("bind", config.DefaultWebBind, "Address to bind the status page to")
}

// bindWebFlags lets --port and --bind of the running command override
// web.port and web.bind. It runs in PreRun because serve and web share the
// keys and only one set of flags may be bound.
func bindWebFlags(c *cobra.Command) {
	if err := viper.BindPFlag("web.port", c.Flags().Lookup("port")); err != nil {
		slog.Error("Failed to bind port flag", "error", err)
	}
	if err := viper.BindPFlag("web.bind", c.Flags().Lookup("bind")); err != nil {
		slog.Error("Failed to bind bind flag", "error", err)
	}
}

func newPoller(cfg config.Config, recorder store.Recorder) *watcher.Poller {
	dialer := watcher.NewIMAPDialer(watcher.IMAPConfig{
		Server:   cfg.IMAP.Server,
		Port:     cfg.IMAP.Port,
		Security: cfg.IMAP.Security,
		Timeout:  cfg.IMAP.Timeout,
	})

	return watcher.NewPoller(dialer, recorder, watcher.Config{
		Username:        cfg.IMAP.Username,
		Password:        cfg.IMAP.Password,
		Interval:        cfg.Poll.Interval,
		MaxAuthFailures: cfg.Poll.MaxAuthFailures,
	})
}

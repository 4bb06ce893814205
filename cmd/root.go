package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meko-christian/mail-watcher/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mail-watcher",
	Short: "Record the subjects of unread mail and show the latest ones",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Setup logger after flag parsing
		setupLogger()
	},
	SilenceUsage: true,
}

func init() {
	// Add persistent flag to enable verbose logging
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose (debug) logging")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml)")

	cobra.OnInitialize(initConfig)

	// Register subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(initCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// initConfig layers the configuration sources: defaults, config.yaml, .env,
// environment and finally flags bound by the subcommands.
func initConfig() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("Failed to read .env", "error", err)
	}

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("No config.yaml found, using environment only",
				"hint", "Run `mail-watcher init` to create one interactively.")
		} else {
			slog.Error("Failed to read config", "error", err)
		}
	}
}

func setupLogger() {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
}

// loadConfig resolves the configuration and runs validate on it.
func loadConfig(validate func(*config.Validator, config.Config) []string) (config.Config, error) {
	cfg := config.Load(viper.GetViper())

	if err := config.Join(validate(config.NewValidator(), cfg)); err != nil {
		return cfg, err
	}

	return cfg, nil
}

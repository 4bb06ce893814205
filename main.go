package main

import (
	"log/slog"
	"os"

	"github.com/meko-christian/mail-watcher/cmd"
)

func main() {
	// JSON logs until the root command applies --verbose
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Run the command-line interface
	if err := cmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

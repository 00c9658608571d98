// Package cmd contains the CLI entry points: serving the chatbot API and
// rebuilding the knowledge base.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chekibot/chekibot/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "chekibot",
	Short: "Chekibot - electoral fact-checking chatbot",
	Long: `Chekibot answers questions about electoral verifications, government
programs, candidates and the electoral calendar, grounded in a curated
knowledge base.

Run "chekibot serve" to start the API server or "chekibot ingest" to
rebuild the knowledge base from the source file.`,
	SilenceUsage: true,
}

// Execute is the main entry point, called from main().
func Execute() error {
	logger := log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("CHEKI_LOG_FORMAT") == "json",
	})
	slog.SetDefault(logger)

	return rootCmd.Execute()
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

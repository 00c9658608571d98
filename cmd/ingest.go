package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chekibot/chekibot/internal/app"
	"github.com/chekibot/chekibot/internal/config"
)

var ingestSourceFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the knowledge base from the source file",
	Long: `Ingest wipes the document store and reloads it from the structured
source file. Run it offline: a rebuild is a full replace, not an
incremental update.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runIngest()
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSourceFile, "source", "s", "", "source file path (overrides configuration)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if ingestSourceFile != "" {
		cfg.SourceFile = ingestSourceFile
	}
	if err = cfg.ValidateIngest(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.NewIngester().Rebuild(ctx, cfg.SourceFile)
	if err != nil {
		return fmt.Errorf("rebuilding knowledge base: %w", err)
	}

	logger.Info("knowledge base rebuilt",
		"chunks", result.ChunksAdded,
		"duration", result.Duration,
	)
	for docType, count := range result.Groups {
		logger.Info("ingested group", "type", docType, "chunks", count)
	}

	fmt.Printf("Ingested %d chunks from %s in %s\n", result.ChunksAdded, cfg.SourceFile, result.Duration)
	return nil
}

// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: Genkit,
// the database pool, the knowledge store and the answer pipeline. Setup
// builds it from configuration; Close releases everything in reverse order.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chekibot/chekibot/internal/agent"
	"github.com/chekibot/chekibot/internal/config"
	"github.com/chekibot/chekibot/internal/ingest"
	"github.com/chekibot/chekibot/internal/knowledge"
	"github.com/chekibot/chekibot/internal/token"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	Counter   *token.Counter
	Agent     *agent.Agent

	otelCleanup func()
	cancel      context.CancelFunc
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

// NewIngester creates the knowledge base rebuild pipeline.
func (a *App) NewIngester() *ingest.Ingester {
	splitter := ingest.NewSplitter(a.Counter, a.Config.MaxChunkTokens, a.Config.OverlapTokens)
	return ingest.New(a.Knowledge, splitter, a.Logger)
}

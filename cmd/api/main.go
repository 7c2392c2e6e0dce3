package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/family-ledger/internal/api/handlers"
	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/blob"
	"github.com/dvloznov/family-ledger/internal/charts"
	"github.com/dvloznov/family-ledger/internal/config"
	"github.com/dvloznov/family-ledger/internal/events"
	infraBQ "github.com/dvloznov/family-ledger/internal/infra/bigquery"
	"github.com/dvloznov/family-ledger/internal/infra/sqlite"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/notionsync"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/dvloznov/family-ledger/internal/session"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	store, err := sqlite.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer store.Close()
	log.Info().Str("path", cfg.SQLiteDBPath).Msg("Ledger database ready")

	blobs, closeBlobs := openBlobStore(ctx, cfg, log)
	defer closeBlobs()

	if !cfg.ImportEnabled() {
		log.Warn().Msg("GEMINI_API_KEY not set - statement imports will find no transactions")
	}
	extractor := pipeline.NewGeminiExtractor(cfg.GeminiAPIKey, cfg.GeminiModel)

	hooks, closeHooks := openHooks(ctx, cfg, log)
	defer closeHooks()

	sessions := session.NewStore(cfg.SessionTTL)
	go sessions.RunSweeper(ctx, 10*time.Minute, func(removed int) {
		log.Debug().Int("removed", removed).Msg("Expired sessions swept")
	})

	importer := pipeline.NewImporter(pipeline.NewSQLiteLedger(store), sessions, pipeline.NewParser(blobs, extractor), hooks...)

	h := &handlers.Handlers{
		Accounts:     handlers.NewAccountsHandler(store),
		Categories:   handlers.NewCategoriesHandler(store),
		Transactions: handlers.NewTransactionsHandler(store),
		Reports:      handlers.NewReportsHandler(store, sessions, charts.NewGenerator()),
		Imports:      handlers.NewImportsHandler(importer, cfg.MaxUploadBytes),
	}

	// Apply middleware
	handler := middleware.RequestID(
		middleware.Recovery(log)(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Session(cfg.SessionCookie, cfg.SessionTTL, session.NewID)(
						h.Routes(cfg.AuthHeader),
					),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// openBlobStore picks the GCS bucket when one is configured and a local
// directory otherwise.
func openBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blob.Store, func()) {
	if cfg.UploadBucket != "" {
		gcs, err := blob.NewGCSStore(ctx, cfg.UploadBucket, cfg.CredentialsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS upload store")
		}
		log.Info().Str("bucket", cfg.UploadBucket).Msg("Uploads staged in GCS")
		return gcs, func() { gcs.Close() }
	}

	local, err := blob.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create local upload store")
	}
	log.Info().Str("dir", cfg.UploadDir).Msg("Uploads staged on local disk")
	return local, func() {}
}

// openHooks builds the post-commit mirrors that are configured. A mirror
// that cannot start is logged and left out; imports still work without it.
func openHooks(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]pipeline.Hook, func()) {
	var (
		hooks   []pipeline.Hook
		closers []func() error
	)

	if cfg.BigQueryProject != "" {
		exporter, err := infraBQ.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.CredentialsFile)
		if err != nil {
			log.Error().Err(err).Msg("BigQuery export disabled")
		} else {
			hooks = append(hooks, exporter)
			closers = append(closers, exporter.Close)
		}
	}

	if cfg.NotionToken != "" {
		hooks = append(hooks, notionsync.NewMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDBID))
	}

	if cfg.AMQPURL != "" {
		publisher, err := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Error().Err(err).Msg("AMQP events disabled")
		} else {
			hooks = append(hooks, publisher)
			closers = append(closers, publisher.Close)
		}
	}

	for _, h := range hooks {
		log.Info().Str("hook", h.Name()).Msg("Post-commit hook enabled")
	}

	return hooks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("Failed to close hook")
			}
		}
	}
}

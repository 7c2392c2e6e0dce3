package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dvloznov/family-ledger/internal/blob"
	"github.com/dvloznov/family-ledger/internal/config"
	"github.com/dvloznov/family-ledger/internal/domain"
	infraBQ "github.com/dvloznov/family-ledger/internal/infra/bigquery"
	"github.com/dvloznov/family-ledger/internal/infra/sqlite"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/notionsync"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		runMigrate(cfg, log)
	case "parse":
		runParse(cfg, log)
	case "notion-sync":
		runNotionSync(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Family Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  migrate       Apply pending database migrations")
	fmt.Println("  parse         Extract transactions from a statement file and print them")
	fmt.Println("  notion-sync   Mirror ledger transactions into the Notion database")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runMigrate(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", cfg.SQLiteDBPath, "SQLite database path")
	withBigQuery := fs.Bool("bigquery", cfg.BigQueryProject != "", "Also create the BigQuery export table")
	fs.Parse(os.Args[2:])

	if dir := filepath.Dir(*dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create database directory")
		}
	}

	if err := sqlite.RunMigrations(*dbPath); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	log.Info().Str("path", *dbPath).Msg("Migrations applied")

	if !*withBigQuery {
		return
	}
	if cfg.BigQueryProject == "" {
		log.Fatal().Msg("Error: BIGQUERY_PROJECT must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	exporter, err := infraBQ.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to BigQuery")
	}
	defer exporter.Close()

	if err := exporter.EnsureTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery table")
	}
	log.Info().
		Str("project", cfg.BigQueryProject).
		Str("dataset", cfg.BigQueryDataset).
		Msg("BigQuery export table ready")
}

func runParse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement (PDF, JPEG or PNG)")
	categories := fs.String("categories", "", "Comma-separated category names offered to the model")
	model := fs.String("model", cfg.GeminiModel, "Gemini model name")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open statement")
	}
	defer f.Close()

	blobs, err := blob.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	parser := pipeline.NewParser(blobs, pipeline.NewGeminiExtractor(cfg.GeminiAPIKey, *model))
	rows := parser.Parse(ctx, filepath.Base(*file), f, splitList(*categories))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}

	if len(rows) == 0 {
		log.Warn().Msg("No transactions found")
		os.Exit(2)
	}
	log.Info().Int("rows", len(rows)).Msg("Statement parsed")
}

func runNotionSync(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("notion-sync", flag.ExitOnError)
	userID := fs.String("user", "", "User whose transactions are mirrored (required)")
	year := fs.Int("year", time.Now().Year(), "Year to mirror")
	month := fs.Int("month", 0, "Month to mirror (0 = whole year)")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if cfg.NotionToken == "" || cfg.NotionDBID == "" {
		log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_DB_ID must be set")
	}

	filter := domain.TransactionFilter{Year: *year, Month: *month}
	if err := filter.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid period")
	}

	store, err := sqlite.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	mirror := notionsync.NewMirror(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionDBID)
	result, err := mirror.SyncTransactions(ctx, store, *userID, filter, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Notion sync failed")
	}

	fmt.Printf("Created: %d, skipped: %d\n", result.Created, result.Skipped)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

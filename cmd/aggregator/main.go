package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gamepulse/aggregator/internal/config"
	"gamepulse/aggregator/internal/database"
	importfeeds "gamepulse/aggregator/internal/import"
	"gamepulse/aggregator/internal/orchestrator"
	"gamepulse/aggregator/internal/server"
	"gamepulse/aggregator/internal/server/api"
	"gamepulse/aggregator/internal/store"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	// Load a local .env before reading any credentials; missing file is fine.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("AGGREGATOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	serveCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("AGGREGATOR_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: AGGREGATOR_HOST)")
	serveCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("AGGREGATOR_PORT", config.DefaultServerPort),
		"Port to listen on (env: AGGREGATOR_PORT)")
	var serveIntervalMinutes int
	serveCmd.IntVar(&serveIntervalMinutes, "interval", config.GetEnvInt("AGGREGATOR_INTERVAL", config.DefaultInterval),
		"Interval in minutes between refresh cycles (env: AGGREGATOR_INTERVAL)")
	var serveLogLevelStr string
	serveCmd.StringVar(&serveLogLevelStr, "log-level", config.GetEnvString("AGGREGATOR_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: AGGREGATOR_LOG_LEVEL)")

	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	fetchCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("AGGREGATOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	var fetchLogLevelStr string
	fetchCmd.StringVar(&fetchLogLevelStr, "log-level", config.GetEnvString("AGGREGATOR_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: AGGREGATOR_LOG_LEVEL)")

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("AGGREGATOR_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: AGGREGATOR_DB_PATH)")
	var importCSVPath string
	importCmd.StringVar(&importCSVPath, "csv", "./feeds.csv",
		"Path to the feeds CSV file (columns: name,url,category)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, serveLogLevelStr)
		cfg.Interval = time.Duration(serveIntervalMinutes) * time.Minute

		if err := runServe(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "fetch":
		fetchCmd.Parse(os.Args[2:])
		applyLogLevel(cfg, fetchLogLevelStr)

		if err := runFetch(cfg); err != nil {
			log.Error().Err(err).Msg("Fetch failed")
			os.Exit(1)
		}

	case "import":
		importCmd.Parse(os.Args[2:])

		if err := runImport(cfg, importCSVPath); err != nil {
			log.Error().Err(err).Msg("Import failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: aggregator [command] [options]")
	fmt.Println("Commands: serve, fetch, import")
	fmt.Println("\nFor command-specific options, use: aggregator [command] -h")
}

func applyLogLevel(cfg *config.Config, levelStr string) {
	if level, err := zerolog.ParseLevel(levelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// runServe starts the refresh scheduler and the HTTP API, stopping both on
// SIGINT/SIGTERM.
func runServe(cfg *config.Config) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	orch := orchestrator.New(st, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	go orch.Run(ctx, cfg.Interval)

	return server.Run(ctx, api.NewHandler(orch, st), cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

// runFetch executes a single refresh cycle and exits.
func runFetch(cfg *config.Config) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.New(db)
	orch := orchestrator.New(st, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	result := orch.RefreshAll(ctx)
	log.Info().
		Int("fetched", result.Fetched).
		Int64("total", result.Total).
		Interface("counts", result.Counts).
		Msg("One-shot fetch complete")
	return nil
}

// runImport bulk-registers custom feeds from a CSV file.
func runImport(cfg *config.Config, csvPath string) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	importer := importfeeds.NewImporter(store.New(db))
	return importer.ImportFeeds(context.Background(), csvPath)
}

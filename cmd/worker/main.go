package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/database"
	"contractiq/internal/extraction"
	"contractiq/internal/llm"
	"contractiq/internal/pipeline"
	"contractiq/internal/queue"
	"contractiq/internal/storage"
)

func main() {
	configPath := flag.String("config", "config/config.json", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	statusCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer statusCache.Close()

	broker, err := queue.NewClientFromConfig(cfg.RabbitMQ)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer broker.Close()

	jobs, err := queue.NewJobQueue(broker, cfg.RabbitMQ)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to declare queue topology")
	}

	store, err := storage.NewS3Store(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document store")
	}

	completer, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize completion client")
	}

	structured, err := extraction.NewStructuredExtractor(completer, cfg.Processing.ChunkTokenThreshold)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize structured extractor")
	}

	extractor := extraction.NewAdapter(extraction.AdapterConfig{})

	executor := pipeline.NewExecutor(db, store, jobs, statusCache, extractor, structured, cfg.Processing)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := executor.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Executor exited with error")
	}
}

func setupLogger(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

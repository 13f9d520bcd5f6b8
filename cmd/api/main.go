package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/database"
	"contractiq/internal/extraction"
	"contractiq/internal/llm"
	"contractiq/internal/pipeline"
	"contractiq/internal/queue"
	"contractiq/internal/server"
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

	srv := server.New(*cfg, db, statusCache, broker, jobs, store)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go func() {
		if err := executor.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Executor exited with error")
		}
	}()

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API server")
	stopWorkers()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
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

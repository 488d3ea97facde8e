package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/andychuong/spendsense-sub000/internal/api"
	"github.com/andychuong/spendsense-sub000/internal/cache"
	"github.com/andychuong/spendsense-sub000/internal/config"
	"github.com/andychuong/spendsense-sub000/internal/database"
	"github.com/andychuong/spendsense-sub000/internal/guardrails"
	"github.com/andychuong/spendsense-sub000/internal/kafka"
	"github.com/andychuong/spendsense-sub000/internal/logger"
	"github.com/andychuong/spendsense-sub000/internal/pipeline"
	"github.com/andychuong/spendsense-sub000/internal/provider"
	"github.com/andychuong/spendsense-sub000/internal/recommend"
	"github.com/andychuong/spendsense-sub000/internal/signals"
	"github.com/andychuong/spendsense-sub000/internal/trace"
)

func main() {
	// .env is optional outside local development
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := runMigrations(cfg.Database.ConnectionString(), log); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}
	log.Info().Msg("connected to PostgreSQL database")

	reportCache, err := cache.New(cfg.Redis, cfg.Signals.CacheTTL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		reportCache = nil
	} else {
		defer reportCache.Close()
		log.Info().Msg("connected to Redis cache")
	}

	// signals.ReportCache is satisfied by *cache.Client; a typed nil must
	// not reach the detector
	var detectorCache signals.ReportCache
	if reportCache != nil {
		detectorCache = reportCache
	}
	detector := signals.NewDetector(signals.Config{
		ExpenseLookbackDays: cfg.Signals.ExpenseLookback,
	}, detectorCache)

	contentProvider := buildProvider(cfg, log)
	generator := recommend.NewGenerator(contentProvider, log)
	guards := guardrails.NewPipeline(db, contentProvider, log)
	recorder := trace.NewRecorder()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ReviewTopic)
	defer producer.Close()
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka producer initialized")

	runner := pipeline.NewRunner(
		db, detector, generator, guards, recorder, producer,
		cfg.Pipeline.GenerationBudget, log,
	)
	batch := pipeline.NewBatch(runner, cfg.Pipeline.BatchWorkers, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var invalidator kafka.CacheInvalidator
	if reportCache != nil {
		invalidator = reportCache
	}
	consumer := kafka.NewIngestionConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.IngestionTopic,
		cfg.Kafka.ConsumerGroup,
		kafka.RunnerFunc(func(ctx context.Context, userID string) error {
			_, err := runner.Run(ctx, userID)
			if errors.Is(err, pipeline.ErrConsentDenied) {
				return nil
			}
			return err
		}),
		invalidator,
		log,
	)
	go func() {
		log.Info().
			Str("topic", cfg.Kafka.IngestionTopic).
			Str("group", cfg.Kafka.ConsumerGroup).
			Msg("starting kafka ingestion consumer")
		if err := consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("kafka ingestion consumer error")
		}
	}()

	handler := api.NewHandler(db, detector, runner, batch, reportCache, log)
	router := api.SetupRoutes(handler)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// stop the kafka consumer
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("error closing kafka consumer")
	}

	log.Info().Msg("server stopped")
}

// buildProvider composes the content provider: the remote model when
// credentials are present, always backed by the deterministic template.
func buildProvider(cfg *config.Config, log zerolog.Logger) provider.Provider {
	template := provider.NewTemplate()

	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		log.Info().Msg("no genai credentials, using template provider only")
		return template
	}

	gemini, err := provider.NewGemini(context.Background(), provider.GeminiConfig{
		Model:      cfg.Provider.Model,
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create genai provider, using template only")
		return template
	}
	log.Info().Str("model", cfg.Provider.Model).Msg("genai provider initialized")
	return provider.WithFallback(gemini, template, log)
}

func runMigrations(databaseURL string, log zerolog.Logger) error {
	// the "file://" prefix selects the migrate file source driver
	m, err := migrate.New("file://./db/migrations", databaseURL)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	if err == migrate.ErrNoChange {
		log.Info().Msg("no migrations to apply; database is up to date")
	}
	return nil
}

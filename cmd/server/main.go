package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/api"
	"github.com/trogers1052/stock-forecast-service/internal/cache"
	"github.com/trogers1052/stock-forecast-service/internal/config"
	"github.com/trogers1052/stock-forecast-service/internal/database"
	"github.com/trogers1052/stock-forecast-service/internal/forecast"
	"github.com/trogers1052/stock-forecast-service/internal/kafka"
	"github.com/trogers1052/stock-forecast-service/internal/logging"
	"github.com/trogers1052/stock-forecast-service/internal/metrics"
	"github.com/trogers1052/stock-forecast-service/internal/models"
	"github.com/trogers1052/stock-forecast-service/internal/scheduler"
	"github.com/trogers1052/stock-forecast-service/internal/service"
)

const (
	retrainTimeout  = 30 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Log)
	if err != nil {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("Failed to build logger")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().Str("model", cfg.Forecast.Model).Msg("Starting stock forecast service")

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec := metrics.New()

	factory, err := forecast.NewFactory(cfg.Forecast.Model, forecast.ForestConfig{
		Trees:          cfg.Forecast.Trees,
		MaxDepth:       cfg.Forecast.MaxDepth,
		MinSamplesLeaf: cfg.Forecast.MinSamplesLeaf,
		MaxFeatures:    cfg.Forecast.MaxFeatures,
		Seed:           cfg.Forecast.Seed,
	}, cfg.Forecast.RidgeLambda)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure forecaster")
	}
	registry := forecast.NewRegistry(factory, log)

	var opts []service.PredictionOption

	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, predictions will not be cached")
		} else {
			defer client.Close()
			opts = append(opts, service.WithCache(cache.NewPredictionCache(client, cfg.Redis.PredictionTTL)))
		}
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		opts = append(opts, service.WithPublisher(producer))
	}

	predictions := service.NewPredictionService(db, registry, rec, cfg.Forecast.HistoryLimit, log, opts...)
	stocks := service.NewStockService(db, predictions, publisher, rec, log)
	rankings := service.NewRankingService(db, rec, log)

	if cfg.Kafka.Enabled && cfg.Kafka.BarsTopic != "" {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.BarsTopic, cfg.Kafka.GroupID, db, log)
		consumer.OnBar(func(ctx context.Context, bar *models.PriceDataDaily) {
			predictions.Invalidate(ctx, bar.Symbol)
		})
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Bar consumer stopped")
			}
		}()
	}

	sched := scheduler.New(log)
	if cfg.Forecast.RetrainSchedule != "" {
		if err := sched.AddJob(cfg.Forecast.RetrainSchedule, scheduler.NewRetrainJob(predictions, retrainTimeout, log)); err != nil {
			log.Fatal().Err(err).Msg("Failed to register retrain job")
		}
	}
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(stocks, predictions, rankings, db, log)
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.SetupRoutes(handler, rec.Handler(), log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("Server started")

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

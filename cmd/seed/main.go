// Command seed replaces the price history of stored stocks with a
// synthetic random walk, giving the forecaster enough bars to train on a
// fresh install.
//
// Usage:
//
//	go run ./cmd/seed --days=365 --seed=42 --symbols=AAPL,MSFT --clear-predictions
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/config"
	"github.com/trogers1052/stock-forecast-service/internal/database"
	"github.com/trogers1052/stock-forecast-service/internal/logging"
	"github.com/trogers1052/stock-forecast-service/internal/seed"
)

func main() {
	days := flag.Int("days", seed.DefaultDays, "Trading days of history to generate per stock")
	seedValue := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed (fixed seeds reproduce the same history)")
	symbols := flag.String("symbols", "", "Comma-separated symbols to seed (default: every stored stock)")
	clearPredictions := flag.Bool("clear-predictions", false, "Delete stored predictions for each seeded stock")
	flag.Parse()

	cfg := config.Load()
	log, err := logging.New(cfg.Log)
	if err != nil {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("Failed to build logger")
	}

	if err := run(cfg, log, *days, *seedValue, *symbols, *clearPredictions); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger, days int, seedValue uint64, symbols string, clearPredictions bool) error {
	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var only []string
	if symbols != "" {
		only = strings.Split(symbols, ",")
	}

	seeder := seed.NewSeeder(db, seed.NewGenerator(seedValue), log)
	result, err := seeder.Run(ctx, seed.Options{
		Days:             days,
		Symbols:          only,
		ClearPredictions: clearPredictions,
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("stocks", result.Stocks).
		Int("bars", result.Bars).
		Int64("predictions_deleted", result.PredictionsDeleted).
		Uint64("seed", seedValue).
		Msg("Seeding complete")
	return nil
}

// Package seed fills the price history of stored stocks with a synthetic
// random walk so a fresh install has enough bars to train and predict.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

const (
	DefaultDays = 365

	minStartPrice = 50.0
	maxStartPrice = 500.0
	minVolume     = 5_000_000
	maxVolume     = 150_000_000
)

// ErrNoStocks is returned when there is nothing to seed.
var ErrNoStocks = errors.New("no stocks to seed")

var minPrice = decimal.New(1, -2)

// Store is the subset of the repository the seeder writes through.
type Store interface {
	GetAllStocks(ctx context.Context) ([]*models.Stock, error)
	SaveStock(ctx context.Context, s *models.Stock) error
	CreatePriceDataBatch(ctx context.Context, prices []*models.PriceDataDaily) error
	DeletePriceDataBySymbol(ctx context.Context, symbol string) error
	DeletePredictionsBySymbol(ctx context.Context, symbol string) (int64, error)
}

// Generator produces random-walk daily bars. The same seed always yields
// the same bars.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Bars returns days weekday bars for symbol ending on end (or the weekday
// before it), in ascending date order. A start price of zero or less
// draws one between 50 and 500.
//
// Each day moves the price by up to a volatility drawn from 1% to 3%, the
// close drifts up to 1% from the open and the high and low extend up to
// 1.5% beyond the body of the candle.
func (g *Generator) Bars(symbol string, days int, startPrice float64, end time.Time) []*models.PriceDataDaily {
	if days <= 0 {
		return nil
	}
	if startPrice <= 0 {
		startPrice = g.uniform(minStartPrice, maxStartPrice)
	}

	dates := tradingDays(days, end)
	bars := make([]*models.PriceDataDaily, 0, days)
	price := startPrice

	for _, date := range dates {
		volatility := g.uniform(0.01, 0.03)
		price *= 1 + g.uniform(-volatility, volatility)

		open := toPrice(price)
		closePrice := toPrice(price * (1 + g.uniform(-0.01, 0.01)))
		high := toPrice(decimal.Max(open, closePrice).InexactFloat64() * (1 + g.uniform(0, 0.015)))
		low := toPrice(decimal.Min(open, closePrice).InexactFloat64() * (1 - g.uniform(0, 0.015)))

		bars = append(bars, &models.PriceDataDaily{
			Symbol:   symbol,
			Date:     date,
			Open:     open,
			High:     decimal.Max(high, open, closePrice),
			Low:      decimal.Min(low, open, closePrice),
			Close:    closePrice,
			AdjClose: closePrice,
			Volume:   minVolume + g.rng.Int64N(maxVolume-minVolume+1),
		})
		price = closePrice.InexactFloat64()
	}
	return bars
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func toPrice(v float64) decimal.Decimal {
	return decimal.Max(decimal.NewFromFloat(v).Round(2), minPrice)
}

// tradingDays returns n weekdays ending on end or the last weekday before
// it, oldest first.
func tradingDays(n int, end time.Time) []time.Time {
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, 0, n)
	for len(dates) < n {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, -1)
	}
	slices.Reverse(dates)
	return dates
}

// Options controls a seeding run.
type Options struct {
	Days int
	// Symbols limits the run to these stocks. Empty means every stock.
	Symbols []string
	// ClearPredictions deletes stored predictions for each seeded symbol,
	// since they were made against the replaced history.
	ClearPredictions bool
	End              time.Time
}

// Result summarizes a seeding run.
type Result struct {
	Stocks             int
	Bars               int
	PredictionsDeleted int64
}

// Seeder replaces the price history of stored stocks with generated bars.
type Seeder struct {
	store Store
	gen   *Generator
	log   zerolog.Logger
}

func NewSeeder(store Store, gen *Generator, log zerolog.Logger) *Seeder {
	return &Seeder{
		store: store,
		gen:   gen,
		log:   log.With().Str("component", "seeder").Logger(),
	}
}

// Run seeds every selected stock. Existing bars for a stock are deleted
// before the new ones are written, and the stock's quote fields are
// updated from the last two generated bars.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	if opts.End.IsZero() {
		opts.End = time.Now()
	}

	stocks, err := s.selectStocks(ctx, opts.Symbols)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		bars := s.gen.Bars(stock.Symbol, opts.Days, stock.CurrentPrice, opts.End)
		if err := s.store.DeletePriceDataBySymbol(ctx, stock.Symbol); err != nil {
			return result, fmt.Errorf("failed to clear history for %s: %w", stock.Symbol, err)
		}
		if err := s.store.CreatePriceDataBatch(ctx, bars); err != nil {
			return result, fmt.Errorf("failed to store history for %s: %w", stock.Symbol, err)
		}

		if opts.ClearPredictions {
			n, err := s.store.DeletePredictionsBySymbol(ctx, stock.Symbol)
			if err != nil {
				return result, fmt.Errorf("failed to clear predictions for %s: %w", stock.Symbol, err)
			}
			result.PredictionsDeleted += n
		}

		applyQuote(stock, bars)
		if err := s.store.SaveStock(ctx, stock); err != nil {
			return result, fmt.Errorf("failed to update quote for %s: %w", stock.Symbol, err)
		}

		result.Stocks++
		result.Bars += len(bars)
		s.log.Info().Str("symbol", stock.Symbol).Int("bars", len(bars)).Msg("Seeded price history")
	}
	return result, nil
}

func (s *Seeder) selectStocks(ctx context.Context, symbols []string) ([]*models.Stock, error) {
	stocks, err := s.store.GetAllStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	if len(symbols) > 0 {
		wanted := make(map[string]bool, len(symbols))
		for _, sym := range symbols {
			wanted[strings.ToUpper(strings.TrimSpace(sym))] = true
		}
		stocks = slices.DeleteFunc(stocks, func(st *models.Stock) bool { return !wanted[st.Symbol] })
		if len(stocks) != len(wanted) {
			found := make(map[string]bool, len(stocks))
			for _, st := range stocks {
				found[st.Symbol] = true
			}
			for sym := range wanted {
				if !found[sym] {
					return nil, fmt.Errorf("%w: %s is not a stored stock", ErrNoStocks, sym)
				}
			}
		}
	}

	if len(stocks) == 0 {
		return nil, ErrNoStocks
	}
	return stocks, nil
}

// applyQuote copies the latest generated session onto the stock record.
func applyQuote(stock *models.Stock, bars []*models.PriceDataDaily) {
	if len(bars) == 0 {
		return
	}
	latest := bars[len(bars)-1]
	stock.CurrentPrice = latest.Close.InexactFloat64()
	stock.DayHigh = latest.High.InexactFloat64()
	stock.DayLow = latest.Low.InexactFloat64()
	stock.Volume = latest.Volume
	stock.LastUpdated = latest.Date

	if len(bars) > 1 {
		prev := bars[len(bars)-2].Close
		change := latest.Close.Sub(prev)
		stock.PreviousClose = prev.InexactFloat64()
		stock.ChangeAmount = change.Round(4).InexactFloat64()
		if prev.IsPositive() {
			stock.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
		}
	}
}

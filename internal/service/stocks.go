package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/metrics"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// ErrInvalidInput marks a request the service refuses before touching
// storage
var ErrInvalidInput = errors.New("invalid input")

// StockService manages tracked stocks and their bar history
type StockService struct {
	store       Store
	predictions *PredictionService
	publisher   EventPublisher
	metrics     *metrics.Recorder
	log         zerolog.Logger
}

// NewStockService creates a stock service. publisher may be nil.
func NewStockService(store Store, predictions *PredictionService, publisher EventPublisher, rec *metrics.Recorder, log zerolog.Logger) *StockService {
	return &StockService{
		store:       store,
		predictions: predictions,
		publisher:   publisher,
		metrics:     rec,
		log:         log.With().Str("component", "stock_service").Logger(),
	}
}

// List returns all stocks, or only those in sector when it is set
func (s *StockService) List(ctx context.Context, sector string) ([]*models.Stock, error) {
	if sector != "" {
		return s.store.GetStocksBySector(ctx, sector)
	}
	return s.store.GetAllStocks(ctx)
}

// Get returns one stock by symbol
func (s *StockService) Get(ctx context.Context, symbol string) (*models.Stock, error) {
	return s.store.GetStock(ctx, normalizeSymbol(symbol))
}

// Add stores a stock and announces it
func (s *StockService) Add(ctx context.Context, stock *models.Stock) error {
	stock.Symbol = normalizeSymbol(stock.Symbol)
	if stock.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}

	if err := s.store.SaveStock(ctx, stock); err != nil {
		return err
	}

	if s.publisher != nil {
		err := s.publisher.PublishStockAdded(ctx, stock)
		s.metrics.RecordEvent(models.EventStockAdded, err)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("failed to publish stock added event")
		}
	}
	return nil
}

// Remove deletes a stock together with its bars, model and predictions
func (s *StockService) Remove(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)

	if err := s.store.DeleteStock(ctx, symbol); err != nil {
		return err
	}
	if err := s.store.DeletePriceDataBySymbol(ctx, symbol); err != nil {
		return err
	}
	if s.predictions != nil {
		if err := s.predictions.Forget(ctx, symbol); err != nil {
			return err
		}
	}

	if s.publisher != nil {
		err := s.publisher.PublishStockRemoved(ctx, symbol)
		s.metrics.RecordEvent(models.EventStockRemoved, err)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to publish stock removed event")
		}
	}

	s.log.Info().Str("symbol", symbol).Msg("stock removed")
	return nil
}

// History returns bars for symbol oldest first. When from or to is set the
// inclusive date range is returned, otherwise the latest limit bars.
func (s *StockService) History(ctx context.Context, symbol string, limit int, from, to time.Time) ([]*models.PriceDataDaily, error) {
	symbol = normalizeSymbol(symbol)

	if from.IsZero() && to.IsZero() {
		return s.store.GetPriceHistory(ctx, symbol, limit)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidInput, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return s.store.GetPriceDataRange(ctx, symbol, from, to)
}

// AddHistory stores a batch of bars for symbol and drops stale cached
// predictions
func (s *StockService) AddHistory(ctx context.Context, symbol string, bars []*models.PriceDataDaily) error {
	symbol = normalizeSymbol(symbol)
	if len(bars) == 0 {
		return fmt.Errorf("%w: no bars", ErrInvalidInput)
	}

	for i, bar := range bars {
		bar.Symbol = symbol
		if bar.Date.IsZero() {
			return fmt.Errorf("%w: bar %d has no date", ErrInvalidInput, i)
		}
		if !bar.Close.IsPositive() {
			return fmt.Errorf("%w: bar %d close must be positive", ErrInvalidInput, i)
		}
		if bar.High.LessThan(bar.Low) {
			return fmt.Errorf("%w: bar %d high below low", ErrInvalidInput, i)
		}
	}

	if err := s.store.CreatePriceDataBatch(ctx, bars); err != nil {
		return err
	}
	if s.predictions != nil {
		s.predictions.Invalidate(ctx, symbol)
	}

	s.log.Info().Str("symbol", symbol).Int("bars", len(bars)).Msg("history stored")
	return nil
}

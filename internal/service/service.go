// Package service coordinates storage, the forecaster registry, the
// prediction cache and event publishing behind the HTTP handlers.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// StockStore persists tracked stocks
type StockStore interface {
	SaveStock(ctx context.Context, s *models.Stock) error
	GetStock(ctx context.Context, symbol string) (*models.Stock, error)
	GetAllStocks(ctx context.Context) ([]*models.Stock, error)
	GetStocksBySector(ctx context.Context, sector string) ([]*models.Stock, error)
	DeleteStock(ctx context.Context, symbol string) error
}

// PriceStore persists daily bars
type PriceStore interface {
	CreatePriceDataBatch(ctx context.Context, prices []*models.PriceDataDaily) error
	GetPriceHistory(ctx context.Context, symbol string, limit int) ([]*models.PriceDataDaily, error)
	GetPriceDataRange(ctx context.Context, symbol string, startDate, endDate time.Time) ([]*models.PriceDataDaily, error)
	DeletePriceDataBySymbol(ctx context.Context, symbol string) error
}

// PredictionStore persists generated forecasts
type PredictionStore interface {
	CreatePrediction(ctx context.Context, p *models.Prediction) error
	GetPredictionsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.Prediction, error)
	GetLatestPrediction(ctx context.Context, symbol string) (*models.Prediction, error)
	DeletePredictionsBySymbol(ctx context.Context, symbol string) (int64, error)
}

// Store is the full repository the services need. *database.DB
// satisfies it.
type Store interface {
	StockStore
	PriceStore
	PredictionStore
}

// PredictionCache is an optional read-through cache for predictions
type PredictionCache interface {
	Get(ctx context.Context, symbol string, daysAhead int) (*models.Prediction, bool, error)
	Set(ctx context.Context, p *models.Prediction) error
	Invalidate(ctx context.Context, symbol string) error
}

// EventPublisher is an optional sink for stock and prediction events
type EventPublisher interface {
	PublishStockAdded(ctx context.Context, stock *models.Stock) error
	PublishStockRemoved(ctx context.Context, symbol string) error
	PublishPrediction(ctx context.Context, prediction *models.Prediction) error
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

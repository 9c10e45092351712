package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-forecast-service/internal/database"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

type memStore struct {
	mu          sync.Mutex
	stocks      map[string]*models.Stock
	bars        map[string][]*models.PriceDataDaily
	predictions []*models.Prediction

	historyErr error
}

func newMemStore() *memStore {
	return &memStore{
		stocks: make(map[string]*models.Stock),
		bars:   make(map[string][]*models.PriceDataDaily),
	}
}

func (m *memStore) SaveStock(ctx context.Context, s *models.Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = "id-" + s.Symbol
	}
	m.stocks[s.Symbol] = s
	return nil
}

func (m *memStore) GetStock(ctx context.Context, symbol string) (*models.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[symbol]
	if !ok {
		return nil, fmt.Errorf("stock %w: %s", database.ErrNotFound, symbol)
	}
	return s, nil
}

func (m *memStore) GetAllStocks(ctx context.Context) ([]*models.Stock, error) {
	return m.filter(func(*models.Stock) bool { return true }), nil
}

func (m *memStore) GetStocksBySector(ctx context.Context, sector string) ([]*models.Stock, error) {
	return m.filter(func(s *models.Stock) bool { return s.Sector == sector }), nil
}

func (m *memStore) filter(keep func(*models.Stock) bool) []*models.Stock {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Stock
	for _, s := range m.stocks {
		if keep(s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *models.Stock) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}

func (m *memStore) DeleteStock(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stocks[symbol]; !ok {
		return fmt.Errorf("stock %w: %s", database.ErrNotFound, symbol)
	}
	delete(m.stocks, symbol)
	return nil
}

func (m *memStore) CreatePriceDataBatch(ctx context.Context, prices []*models.PriceDataDaily) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range prices {
		m.bars[p.Symbol] = append(m.bars[p.Symbol], p)
	}
	return nil
}

func (m *memStore) GetPriceHistory(ctx context.Context, symbol string, limit int) ([]*models.PriceDataDaily, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	bars := m.bars[symbol]
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return slices.Clone(bars), nil
}

func (m *memStore) GetPriceDataRange(ctx context.Context, symbol string, start, end time.Time) ([]*models.PriceDataDaily, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.PriceDataDaily
	for _, b := range m.bars[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) DeletePriceDataBySymbol(ctx context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bars, symbol)
	return nil
}

func (m *memStore) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = len(m.predictions) + 1
	m.predictions = append(m.predictions, p)
	return nil
}

func (m *memStore) GetPredictionsBySymbol(ctx context.Context, symbol string, limit int) ([]*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Prediction
	for i := len(m.predictions) - 1; i >= 0 && len(out) < limit; i-- {
		if m.predictions[i].Symbol == symbol {
			out = append(out, m.predictions[i])
		}
	}
	return out, nil
}

func (m *memStore) GetLatestPrediction(ctx context.Context, symbol string) (*models.Prediction, error) {
	out, _ := m.GetPredictionsBySymbol(ctx, symbol, 1)
	if len(out) == 0 {
		return nil, fmt.Errorf("prediction %w for %s", database.ErrNotFound, symbol)
	}
	return out[0], nil
}

func (m *memStore) DeletePredictionsBySymbol(ctx context.Context, symbol string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.predictions)
	m.predictions = slices.DeleteFunc(m.predictions, func(p *models.Prediction) bool { return p.Symbol == symbol })
	return int64(before - len(m.predictions)), nil
}

type memCache struct {
	mu          sync.Mutex
	entries     map[string]*models.Prediction
	invalidated []string
	getErr      error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*models.Prediction)}
}

func cacheKey(symbol string, daysAhead int) string {
	return fmt.Sprintf("%s:%d", symbol, daysAhead)
}

func (c *memCache) Get(ctx context.Context, symbol string, daysAhead int) (*models.Prediction, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	p, ok := c.entries[cacheKey(symbol, daysAhead)]
	return p, ok, nil
}

func (c *memCache) Set(ctx context.Context, p *models.Prediction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(p.Symbol, p.DaysAhead)] = p
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, symbol string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, symbol)
	for k := range c.entries {
		if strings.HasPrefix(k, symbol+":") {
			delete(c.entries, k)
		}
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(event string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) PublishStockAdded(ctx context.Context, stock *models.Stock) error {
	return p.record(models.EventStockAdded + ":" + stock.Symbol)
}

func (p *recordingPublisher) PublishStockRemoved(ctx context.Context, symbol string) error {
	return p.record(models.EventStockRemoved + ":" + symbol)
}

func (p *recordingPublisher) PublishPrediction(ctx context.Context, prediction *models.Prediction) error {
	return p.record(models.EventPredictionGenerated + ":" + prediction.Symbol)
}

var errBroker = errors.New("broker unavailable")

func stock(symbol string) *models.Stock {
	return &models.Stock{Symbol: symbol, Name: symbol + " Corp", CurrentPrice: 100}
}

// linearBars builds n daily bars whose close rises by 0.5 from 100
func linearBars(symbol string, n int) []*models.PriceDataDaily {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*models.PriceDataDaily, n)
	for i := range bars {
		c := decimal.NewFromFloat(100 + 0.5*float64(i))
		bars[i] = &models.PriceDataDaily{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c.Add(decimal.NewFromInt(1)),
			Low:    c.Sub(decimal.NewFromInt(1)),
			Close:  c,
			Volume: 1000000 + int64(i%5)*10000,
		}
	}
	return bars
}

package service

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/metrics"
	"github.com/trogers1052/stock-forecast-service/internal/models"
	"github.com/trogers1052/stock-forecast-service/internal/sorting"
)

// BenchmarkReport holds per-algorithm timings for one criterion
type BenchmarkReport struct {
	Criterion string                        `json:"criterion"`
	Count     int                           `json:"count"`
	Timings   map[sorting.Algorithm]float64 `json:"timings_ms"`
}

// RankingService orders stored stocks with the sort engine
type RankingService struct {
	stocks  StockStore
	metrics *metrics.Recorder
	log     zerolog.Logger
}

// NewRankingService creates a ranking service
func NewRankingService(stocks StockStore, rec *metrics.Recorder, log zerolog.Logger) *RankingService {
	return &RankingService{
		stocks:  stocks,
		metrics: rec,
		log:     log.With().Str("component", "ranking_service").Logger(),
	}
}

func (s *RankingService) load(ctx context.Context, sector string) ([]*models.Stock, error) {
	if sector != "" {
		return s.stocks.GetStocksBySector(ctx, sector)
	}
	return s.stocks.GetAllStocks(ctx)
}

// Rank sorts stocks by one criterion. An empty algorithm selects one by
// input size.
func (s *RankingService) Rank(ctx context.Context, criterion, algorithm, sector string) (*sorting.Result, error) {
	records, err := s.load(ctx, sector)
	if err != nil {
		return nil, err
	}

	result, err := sorting.Sort(records, criterion, algorithm)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSort(string(result.Algorithm), result.ElapsedMs)
	s.log.Debug().
		Str("criterion", result.Criterion).
		Str("algorithm", string(result.Algorithm)).
		Int("count", result.Count).
		Float64("elapsed_ms", result.ElapsedMs).
		Msg("stocks ranked")
	return result, nil
}

// MultiRank sorts stocks by several criteria, earlier ones taking
// precedence
func (s *RankingService) MultiRank(ctx context.Context, criteria []string, sector string) ([]*models.Stock, error) {
	records, err := s.load(ctx, sector)
	if err != nil {
		return nil, err
	}
	return sorting.MultiSort(records, criteria)
}

// Benchmark times every eligible algorithm on the stored stocks
func (s *RankingService) Benchmark(ctx context.Context, criterion, sector string) (*BenchmarkReport, error) {
	records, err := s.load(ctx, sector)
	if err != nil {
		return nil, err
	}

	timings, err := sorting.Benchmark(records, criterion)
	if err != nil {
		return nil, err
	}
	for alg, ms := range timings {
		s.metrics.RecordSort(string(alg), ms)
	}

	c, _ := sorting.ParseCriterion(criterion)
	return &BenchmarkReport{Criterion: c.String(), Count: len(records), Timings: timings}, nil
}

// Criteria lists the supported criterion names by category
func (s *RankingService) Criteria() map[string][]string {
	return sorting.ListCriteria()
}

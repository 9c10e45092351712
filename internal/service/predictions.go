package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/forecast"
	"github.com/trogers1052/stock-forecast-service/internal/indicators"
	"github.com/trogers1052/stock-forecast-service/internal/metrics"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// FeatureSnapshot is the feature vector of the most recent bar
type FeatureSnapshot struct {
	Symbol   string                   `json:"symbol"`
	Date     time.Time                `json:"date"`
	Bars     int                      `json:"bars"`
	Features indicators.FeatureVector `json:"features"`
}

// RetrainSummary reports the outcome of RetrainAll
type RetrainSummary struct {
	Trained []string          `json:"trained"`
	Failed  map[string]string `json:"failed"`
}

// PredictionService trains per-symbol forecasters on stored history and
// serves their predictions
type PredictionService struct {
	store        Store
	registry     *forecast.Registry
	cache        PredictionCache
	publisher    EventPublisher
	metrics      *metrics.Recorder
	historyLimit int
	log          zerolog.Logger
}

// PredictionOption configures optional collaborators
type PredictionOption func(*PredictionService)

// WithCache enables the prediction cache
func WithCache(c PredictionCache) PredictionOption {
	return func(s *PredictionService) { s.cache = c }
}

// WithPublisher enables PREDICTION_GENERATED events
func WithPublisher(p EventPublisher) PredictionOption {
	return func(s *PredictionService) { s.publisher = p }
}

// NewPredictionService creates a prediction service. historyLimit is the
// number of most recent bars loaded for training and prediction.
func NewPredictionService(store Store, registry *forecast.Registry, rec *metrics.Recorder, historyLimit int, log zerolog.Logger, opts ...PredictionOption) *PredictionService {
	s := &PredictionService{
		store:        store,
		registry:     registry,
		metrics:      rec,
		historyLimit: historyLimit,
		log:          log.With().Str("component", "prediction_service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PredictionService) history(ctx context.Context, symbol string) ([]*models.PriceDataDaily, error) {
	bars, err := s.store.GetPriceHistory(ctx, symbol, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", symbol, err)
	}
	return bars, nil
}

// Predict returns a forecast for symbol, training a model first when none
// exists or retrain is set. Cached predictions are served unless retrain
// is set. Cache hits, trainings and model predictions are each counted in
// metrics with their own durations.
func (s *PredictionService) Predict(ctx context.Context, symbol string, daysAhead int, retrain bool) (*models.Prediction, error) {
	symbol = normalizeSymbol(symbol)
	start := time.Now()

	if !retrain {
		if p, ok := s.cached(ctx, symbol, daysAhead); ok {
			s.metrics.RecordPrediction(time.Since(start), nil)
			return p, nil
		}
	}

	bars, err := s.history(ctx, symbol)
	if err != nil {
		s.metrics.RecordPrediction(time.Since(start), err)
		return nil, err
	}

	forecaster := s.registry.Get(symbol)
	trained := retrain || !forecaster.IsTrained()
	if trained {
		trainStart := time.Now()
		_, err := forecaster.Train(bars)
		s.metrics.RecordTraining(time.Since(trainStart), err)
		if err != nil {
			s.metrics.RecordPrediction(time.Since(start), err)
			return nil, fmt.Errorf("failed to predict %s: %w", symbol, err)
		}
		s.refreshTrainedGauge()
		s.invalidate(ctx, symbol)
	}

	predictStart := time.Now()
	prediction, err := forecaster.Predict(bars, daysAhead)
	s.metrics.RecordPrediction(time.Since(predictStart), err)
	if err != nil {
		return nil, fmt.Errorf("failed to predict %s: %w", symbol, err)
	}

	if err := s.store.CreatePrediction(ctx, prediction); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to store prediction")
	}
	s.remember(ctx, prediction)
	s.publish(ctx, prediction)

	s.log.Info().
		Str("symbol", symbol).
		Float64("predicted_price", prediction.PredictedPrice).
		Float64("confidence", prediction.ConfidenceScore).
		Bool("trained", trained).
		Msg("prediction generated")

	return prediction, nil
}

func (s *PredictionService) cached(ctx context.Context, symbol string, daysAhead int) (*models.Prediction, bool) {
	if s.cache == nil {
		return nil, false
	}
	p, ok, err := s.cache.Get(ctx, symbol, daysAhead)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("prediction cache read failed")
		return nil, false
	}
	s.metrics.RecordCacheLookup(ok)
	return p, ok
}

func (s *PredictionService) remember(ctx context.Context, p *models.Prediction) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, p); err != nil {
		s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("prediction cache write failed")
	}
}

func (s *PredictionService) publish(ctx context.Context, p *models.Prediction) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishPrediction(ctx, p)
	s.metrics.RecordEvent(models.EventPredictionGenerated, err)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("failed to publish prediction event")
	}
}

func (s *PredictionService) refreshTrainedGauge() {
	n := 0
	for _, symbol := range s.registry.Symbols() {
		if s.registry.Get(symbol).IsTrained() {
			n++
		}
	}
	s.metrics.SetTrainedModels(n)
}

// Invalidate drops cached predictions for symbol. Errors are logged.
func (s *PredictionService) Invalidate(ctx context.Context, symbol string) {
	s.invalidate(ctx, normalizeSymbol(symbol))
}

func (s *PredictionService) invalidate(ctx context.Context, symbol string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, symbol); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("prediction cache invalidation failed")
	}
}

// Train fits a new model for symbol on its stored history
func (s *PredictionService) Train(ctx context.Context, symbol string) (*forecast.TrainResult, error) {
	symbol = normalizeSymbol(symbol)

	start := time.Now()
	bars, err := s.history(ctx, symbol)
	if err != nil {
		s.metrics.RecordTraining(time.Since(start), err)
		return nil, err
	}

	result, err := s.registry.Get(symbol).Train(bars)
	s.metrics.RecordTraining(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to train %s: %w", symbol, err)
	}

	s.refreshTrainedGauge()
	s.invalidate(ctx, symbol)
	return result, nil
}

// RetrainAll trains a model for every stored stock. A failure on one
// symbol is recorded in the summary and does not stop the others.
func (s *PredictionService) RetrainAll(ctx context.Context) (*RetrainSummary, error) {
	stocks, err := s.store.GetAllStocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	summary := &RetrainSummary{Trained: []string{}, Failed: map[string]string{}}
	for _, stock := range stocks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if _, err := s.Train(ctx, stock.Symbol); err != nil {
			summary.Failed[stock.Symbol] = err.Error()
			event := s.log.Error()
			if errors.Is(err, forecast.ErrInsufficientData) {
				event = s.log.Warn()
			}
			event.Err(err).Str("symbol", stock.Symbol).Msg("retrain failed")
			continue
		}
		summary.Trained = append(summary.Trained, stock.Symbol)
	}

	s.log.Info().
		Int("trained", len(summary.Trained)).
		Int("failed", len(summary.Failed)).
		Msg("retrain complete")
	return summary, nil
}

// Features returns the indicator vector of the latest stored bar
func (s *PredictionService) Features(ctx context.Context, symbol string) (*FeatureSnapshot, error) {
	symbol = normalizeSymbol(symbol)

	bars, err := s.history(ctx, symbol)
	if err != nil {
		return nil, err
	}

	latest, err := indicators.Latest(bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has %d bars", err, symbol, len(bars))
	}

	return &FeatureSnapshot{
		Symbol:   symbol,
		Date:     bars[len(bars)-1].Date,
		Bars:     len(bars),
		Features: latest,
	}, nil
}

// Predictions returns stored forecasts for symbol, newest first
func (s *PredictionService) Predictions(ctx context.Context, symbol string, limit int) ([]*models.Prediction, error) {
	return s.store.GetPredictionsBySymbol(ctx, normalizeSymbol(symbol), limit)
}

// LatestPrediction returns the newest stored forecast for symbol
func (s *PredictionService) LatestPrediction(ctx context.Context, symbol string) (*models.Prediction, error) {
	return s.store.GetLatestPrediction(ctx, normalizeSymbol(symbol))
}

// Forget drops the model, cached and stored predictions for symbol
func (s *PredictionService) Forget(ctx context.Context, symbol string) error {
	symbol = normalizeSymbol(symbol)

	s.registry.Remove(symbol)
	s.refreshTrainedGauge()
	s.invalidate(ctx, symbol)

	if _, err := s.store.DeletePredictionsBySymbol(ctx, symbol); err != nil {
		return err
	}
	return nil
}

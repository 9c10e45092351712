// Package forecast trains a regressor on technical-indicator feature vectors
// and produces one-step-ahead closing price estimates.
package forecast

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-forecast-service/internal/indicators"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// MinTrainingSamples is the smallest training set accepted by Train. A
// sample pairs the feature vector of bar i with the close of bar i+1, so
// this needs MinTrainingSamples + indicators.MinBars bars.
const MinTrainingSamples = 30

// TrainResult summarizes a successful training run.
type TrainResult struct {
	Success         bool            `json:"success"`
	Symbol          string          `json:"symbol"`
	Model           string          `json:"model"`
	SampleCount     int             `json:"sample_count"`
	FeatureCount    int             `json:"feature_count"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
	TrainedAt       time.Time       `json:"trained_at"`
}

// Forecaster owns one trained model. Train and Predict may be called from
// multiple goroutines: training holds the write lock, prediction the read
// lock.
type Forecaster struct {
	mu          sync.RWMutex
	symbol      string
	newModel    ModelFactory
	model       Regressor
	sampleCount int
	trainedAt   time.Time
	log         zerolog.Logger
}

// New creates an untrained forecaster for symbol.
func New(symbol string, factory ModelFactory, log zerolog.Logger) *Forecaster {
	if factory == nil {
		factory = func() Regressor { return NewRandomForest(DefaultForestConfig()) }
	}
	return &Forecaster{
		symbol:   symbol,
		newModel: factory,
		log:      log.With().Str("component", "forecaster").Str("symbol", symbol).Logger(),
	}
}

// Symbol returns the symbol this forecaster was created for.
func (f *Forecaster) Symbol() string { return f.symbol }

// IsTrained reports whether a model has been fitted.
func (f *Forecaster) IsTrained() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.model != nil
}

// TrainedAt returns when the current model was fitted, or the zero time.
func (f *Forecaster) TrainedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.trainedAt
}

// Train fits a fresh model on bars (ascending by date). On failure the
// previously trained model, if any, is kept.
func (f *Forecaster) Train(bars []*models.PriceDataDaily) (*TrainResult, error) {
	x, y := trainingSet(bars)
	if len(x) < MinTrainingSamples {
		return nil, fmt.Errorf("%w: %d training samples from %d bars, need %d",
			ErrInsufficientData, len(x), len(bars), MinTrainingSamples)
	}

	model := f.newModel()
	if err := fitSafely(model, x, y); err != nil {
		f.log.Error().Err(err).Int("samples", len(x)).Msg("Training failed")
		return nil, err
	}

	f.mu.Lock()
	f.model = model
	f.sampleCount = len(x)
	f.trainedAt = time.Now().UTC()
	trainedAt := f.trainedAt
	f.mu.Unlock()

	f.log.Info().
		Str("model", model.Name()).
		Int("samples", len(x)).
		Msg("Model trained")

	return &TrainResult{
		Success:         true,
		Symbol:          f.symbol,
		Model:           model.Name(),
		SampleCount:     len(x),
		FeatureCount:    indicators.FeatureCount,
		Hyperparameters: model.Hyperparameters(),
		TrainedAt:       trainedAt,
	}, nil
}

// Predict estimates the close following the last bar. daysAhead is recorded
// on the result but the model always forecasts a single bar ahead.
func (f *Forecaster) Predict(bars []*models.PriceDataDaily, daysAhead int) (*models.Prediction, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.model == nil {
		return nil, ErrNotTrained
	}

	latest, err := indicators.Latest(bars)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientData, len(bars), indicators.MinBars)
	}

	predicted, err := predictSafely(f.model, latest.Values())
	if err != nil {
		return nil, err
	}

	current := bars[len(bars)-1].Close.InexactFloat64()
	change := predicted - current
	changePct := 0.0
	if current != 0 {
		changePct = change / current * 100
	}

	return &models.Prediction{
		Symbol:             f.symbol,
		PredictedPrice:     round(predicted, 2),
		ConfidenceScore:    round(ConfidenceScore(predicted, current, latest.Volatility10), 1),
		CurrentPrice:       current,
		PriceChange:        round(change, 2),
		PriceChangePercent: round(changePct, 2),
		DaysAhead:          daysAhead,
		Model:              f.model.Name(),
		SampleCount:        f.sampleCount,
		Timestamp:          time.Now().UTC(),
	}, nil
}

// TrainAndPredict trains when no model exists or retrain is set, then
// predicts.
func (f *Forecaster) TrainAndPredict(bars []*models.PriceDataDaily, daysAhead int, retrain bool) (*models.Prediction, error) {
	if retrain || !f.IsTrained() {
		if _, err := f.Train(bars); err != nil {
			return nil, err
		}
	}
	return f.Predict(bars, daysAhead)
}

// ConfidenceScore is a heuristic in [0,100]: it starts at 100 and drops with
// the relative size of the predicted move and with recent volatility. It is
// not a statistical confidence level.
func ConfidenceScore(predicted, current, volatility float64) float64 {
	if current <= 0 {
		return 0
	}
	score := 100 - math.Abs(predicted-current)/current*100 - volatility/current*50
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}

// trainingSet pairs the feature vector of each bar with the next bar's close.
func trainingSet(bars []*models.PriceDataDaily) ([][]float64, []float64) {
	vectors := indicators.ComputeFeatures(bars)
	if len(vectors) < 2 {
		return nil, nil
	}

	x := make([][]float64, 0, len(vectors)-1)
	y := make([]float64, 0, len(vectors)-1)
	for k := 0; k < len(vectors)-1; k++ {
		next := bars[indicators.MinBars+k]
		x = append(x, vectors[k].Values())
		y = append(y, next.Close.InexactFloat64())
	}
	return x, y
}

func fitSafely(model Regressor, x [][]float64, y []float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s fit panicked: %v", ErrModel, model.Name(), r)
		}
	}()
	if err := model.Fit(x, y); err != nil {
		return fmt.Errorf("%w: %s fit: %v", ErrModel, model.Name(), err)
	}
	return nil
}

func predictSafely(model Regressor, x []float64) (out float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s predict panicked: %v", ErrModel, model.Name(), r)
		}
	}()
	out, err = model.Predict(x)
	if err != nil {
		return 0, fmt.Errorf("%w: %s predict: %v", ErrModel, model.Name(), err)
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: %s produced a non-finite prediction", ErrModel, model.Name())
	}
	return out, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

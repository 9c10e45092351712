package forecast

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-forecast-service/internal/indicators"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

// linearBars returns n daily bars with closes start, start+step, ...
func linearBars(n int, start, step float64, volume int64) []*models.PriceDataDaily {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]*models.PriceDataDaily, n)
	for i := range bars {
		price := decimal.NewFromFloat(start + step*float64(i))
		bars[i] = &models.PriceDataDaily{
			Symbol:   "AAPL",
			Date:     day.AddDate(0, 0, i),
			Open:     price,
			High:     price,
			Low:      price,
			Close:    price,
			AdjClose: price,
			Volume:   volume,
		}
	}
	return bars
}

type stubRegressor struct {
	fitErr    error
	fitPanic  bool
	predicted float64
	fitted    bool
}

func (s *stubRegressor) Name() string { return "stub" }

func (s *stubRegressor) Fit(x [][]float64, y []float64) error {
	if s.fitPanic {
		panic("boom")
	}
	if s.fitErr != nil {
		return s.fitErr
	}
	s.fitted = true
	return nil
}

func (s *stubRegressor) Predict(x []float64) (float64, error) { return s.predicted, nil }

func (s *stubRegressor) Hyperparameters() Hyperparameters { return Hyperparameters{} }

func stubFactory(s *stubRegressor) ModelFactory {
	return func() Regressor { return s }
}

func TestForecasterTrain(t *testing.T) {
	t.Run("29 samples fails with insufficient data", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())

		bars := linearBars(MinTrainingSamples+indicators.MinBars-1, 100, 0.5, 1_000_000)
		result, err := f.Train(bars)

		assert.ErrorIs(t, err, ErrInsufficientData)
		assert.Nil(t, result)
		assert.False(t, f.IsTrained())
	})

	t.Run("30 samples succeeds", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())

		bars := linearBars(MinTrainingSamples+indicators.MinBars, 100, 0.5, 1_000_000)
		result, err := f.Train(bars)

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, 30, result.SampleCount)
		assert.Equal(t, indicators.FeatureCount, result.FeatureCount)
		assert.Equal(t, 100, result.Hyperparameters["n_estimators"])
		assert.Equal(t, 10, result.Hyperparameters["max_depth"])
		assert.Equal(t, "sqrt", result.Hyperparameters["max_features"])
		assert.True(t, f.IsTrained())
		assert.False(t, f.TrainedAt().IsZero())
	})

	t.Run("regressor error surfaces as model error", func(t *testing.T) {
		f := New("AAPL", stubFactory(&stubRegressor{fitErr: errors.New("singular")}), zerolog.Nop())

		_, err := f.Train(linearBars(60, 100, 0.5, 1000))
		assert.ErrorIs(t, err, ErrModel)
		assert.False(t, f.IsTrained())
	})

	t.Run("regressor panic surfaces as model error", func(t *testing.T) {
		f := New("AAPL", stubFactory(&stubRegressor{fitPanic: true}), zerolog.Nop())

		_, err := f.Train(linearBars(60, 100, 0.5, 1000))
		assert.ErrorIs(t, err, ErrModel)
	})

	t.Run("failed retrain keeps the previous model", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())
		_, err := f.Train(linearBars(60, 100, 0.5, 1000))
		require.NoError(t, err)

		_, err = f.Train(linearBars(10, 100, 0.5, 1000))
		assert.ErrorIs(t, err, ErrInsufficientData)
		assert.True(t, f.IsTrained())
	})
}

func TestForecasterPredict(t *testing.T) {
	t.Run("before training fails with not trained", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())

		_, err := f.Predict(linearBars(90, 100, 0.5, 1000), 1)
		assert.ErrorIs(t, err, ErrNotTrained)
	})

	t.Run("short history fails with insufficient data", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())
		_, err := f.Train(linearBars(60, 100, 0.5, 1000))
		require.NoError(t, err)

		_, err = f.Predict(linearBars(indicators.MinBars-1, 100, 0.5, 1000), 1)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("non-finite prediction is a model error", func(t *testing.T) {
		f := New("AAPL", stubFactory(&stubRegressor{predicted: math.NaN()}), zerolog.Nop())
		_, err := f.Train(linearBars(60, 100, 0.5, 1000))
		require.NoError(t, err)

		_, err = f.Predict(linearBars(60, 100, 0.5, 1000), 1)
		assert.ErrorIs(t, err, ErrModel)
	})

	t.Run("days ahead is carried as a label", func(t *testing.T) {
		stub := &stubRegressor{predicted: 110}
		f := New("AAPL", stubFactory(stub), zerolog.Nop())
		bars := linearBars(60, 100, 0, 1000)
		_, err := f.Train(bars)
		require.NoError(t, err)

		one, err := f.Predict(bars, 1)
		require.NoError(t, err)
		five, err := f.Predict(bars, 5)
		require.NoError(t, err)

		assert.Equal(t, 1, one.DaysAhead)
		assert.Equal(t, 5, five.DaysAhead)
		assert.Equal(t, one.PredictedPrice, five.PredictedPrice)
		assert.Equal(t, 110.0, five.PredictedPrice)
		assert.Equal(t, 100.0, five.CurrentPrice)
		assert.Equal(t, 10.0, five.PriceChange)
		assert.Equal(t, 10.0, five.PriceChangePercent)
		// flat closes: volatility is zero, only the 10% move counts
		assert.Equal(t, 90.0, five.ConfidenceScore)
		assert.Equal(t, 33, five.SampleCount)
	})
}

func TestForecasterEndToEnd(t *testing.T) {
	bars := linearBars(90, 100, 0.5, 1_000_000)

	t.Run("random forest", func(t *testing.T) {
		f := New("AAPL", nil, zerolog.Nop())

		result, err := f.Train(bars)
		require.NoError(t, err)
		assert.Equal(t, 63, result.SampleCount)

		prediction, err := f.Predict(bars, 1)
		require.NoError(t, err)

		assert.Equal(t, "AAPL", prediction.Symbol)
		assert.Equal(t, 144.5, prediction.CurrentPrice)
		assert.InDelta(t, 145.0, prediction.PredictedPrice, 10.0)
		assert.GreaterOrEqual(t, prediction.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, prediction.ConfidenceScore, 100.0)
	})

	t.Run("ridge", func(t *testing.T) {
		factory, err := NewFactory(ModelRidge, ForestConfig{}, 0)
		require.NoError(t, err)
		f := New("AAPL", factory, zerolog.Nop())

		prediction, err := f.TrainAndPredict(bars, 1, false)
		require.NoError(t, err)

		assert.Equal(t, "ridge", prediction.Model)
		assert.InDelta(t, 145.0, prediction.PredictedPrice, 5.0)
		assert.GreaterOrEqual(t, prediction.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, prediction.ConfidenceScore, 100.0)
	})
}

func TestTrainAndPredict(t *testing.T) {
	stub := &stubRegressor{predicted: 101}
	calls := 0
	factory := func() Regressor {
		calls++
		return stub
	}
	f := New("MSFT", factory, zerolog.Nop())
	bars := linearBars(60, 100, 0, 1000)

	_, err := f.TrainAndPredict(bars, 1, false)
	require.NoError(t, err)
	_, err = f.TrainAndPredict(bars, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "trained model should be reused")

	_, err = f.TrainAndPredict(bars, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "retrain should fit a new model")
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 100.0, ConfidenceScore(100, 100, 0))
	assert.InDelta(t, 95.0, ConfidenceScore(105, 100, 0), 1e-9)
	assert.InDelta(t, 90.0, ConfidenceScore(105, 100, 10), 1e-9)
	assert.Equal(t, 0.0, ConfidenceScore(300, 100, 0))
	assert.Equal(t, 0.0, ConfidenceScore(100, 0, 1))
}

func TestForecasterConcurrentAccess(t *testing.T) {
	f := New("AAPL", nil, zerolog.Nop())
	bars := linearBars(70, 100, 0.5, 1000)
	_, err := f.Train(bars)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.Predict(bars, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.Train(bars)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-forecast-service/internal/models"
)

func barsFromCloses(closes []float64, volume int64) []*models.PriceDataDaily {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]*models.PriceDataDaily, len(closes))
	for i, c := range closes {
		price := decimal.NewFromFloat(c)
		bars[i] = &models.PriceDataDaily{
			Symbol:   "TEST",
			Date:     start.AddDate(0, 0, i),
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

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	closes := []float64{100, 102, 104, 103, 105}

	assert.InDelta(t, 104.0, SMA(closes, 3), 1e-9)
	assert.InDelta(t, 102.8, SMA(closes, 5), 1e-9)

	t.Run("short history degrades to latest close", func(t *testing.T) {
		assert.Equal(t, 105.0, SMA(closes, 10))
	})
}

func TestEMA(t *testing.T) {
	// alpha = 0.5, seeded with 10: 10 -> 11 -> 12.5
	assert.InDelta(t, 12.5, EMA([]float64{10, 12, 14}, 3), 1e-9)

	t.Run("constant series", func(t *testing.T) {
		assert.InDelta(t, 50.0, EMA(linear(40, 50, 0), 12), 1e-9)
	})

	t.Run("short history degrades to latest close", func(t *testing.T) {
		assert.Equal(t, 14.0, EMA([]float64{10, 12, 14}, 12))
	})
}

func TestRSI(t *testing.T) {
	t.Run("fewer than 15 closes is neutral", func(t *testing.T) {
		assert.Equal(t, 50.0, RSI(linear(14, 100, 1), 14))
	})

	t.Run("all gains is 100", func(t *testing.T) {
		assert.Equal(t, 100.0, RSI(linear(15, 100, 1), 14))
		assert.Equal(t, 100.0, RSI(linear(60, 100, 0.5), 14))
	})

	t.Run("all losses is 0", func(t *testing.T) {
		assert.InDelta(t, 0.0, RSI(linear(30, 200, -1), 14), 1e-9)
	})

	t.Run("flat prices are 100", func(t *testing.T) {
		assert.Equal(t, 100.0, RSI(linear(30, 100, 0), 14))
	})

	t.Run("stays within bounds", func(t *testing.T) {
		closes := make([]float64, 200)
		for i := range closes {
			closes[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
		}
		for end := 15; end <= len(closes); end++ {
			rsi := RSI(closes[:end], 14)
			assert.GreaterOrEqual(t, rsi, 0.0)
			assert.LessOrEqual(t, rsi, 100.0)
		}
	})

	t.Run("equal gains and losses is 50", func(t *testing.T) {
		closes := []float64{10}
		for i := 0; i < 14; i++ {
			if i%2 == 0 {
				closes = append(closes, closes[len(closes)-1]+1)
			} else {
				closes = append(closes, closes[len(closes)-1]-1)
			}
		}
		assert.InDelta(t, 50.0, RSI(closes, 14), 1e-9)
	})
}

func TestVolatility(t *testing.T) {
	// mean 5, squared deviations sum to 40
	closes := []float64{1, 3, 5, 5, 5, 5, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, Volatility(closes, 10), 1e-9)
	assert.InDelta(t, 2.0, Volatility(append([]float64{500, 600}, closes...), 10), 1e-9)

	assert.Equal(t, 0.0, Volatility(closes[:9], 10))
	assert.Equal(t, 0.0, Volatility(linear(20, 100, 0), 10))
}

func TestVolumeRatio(t *testing.T) {
	volumes := append(linear(10, 1000, 0), 2000)
	assert.InDelta(t, 2.0, VolumeRatio(volumes, 10), 1e-9)

	assert.Equal(t, 1.0, VolumeRatio(linear(10, 1000, 0), 10))
	assert.Equal(t, 1.0, VolumeRatio(append(linear(10, 0, 0), 500), 10))
}

func TestMomentum(t *testing.T) {
	closes := []float64{100, 101, 102, 110}
	assert.InDelta(t, 10.0, Momentum(closes, 3), 1e-9)
	assert.Equal(t, 0.0, Momentum(closes, 7))
	assert.InDelta(t, (110.0-102.0)/102.0*100, PriceChangePercent(closes), 1e-9)
	assert.Equal(t, 0.0, PriceChangePercent([]float64{100}))
}

func TestComputeFeatures(t *testing.T) {
	t.Run("fewer than 27 bars yields nothing", func(t *testing.T) {
		assert.Empty(t, ComputeFeatures(barsFromCloses(linear(26, 100, 1), 1000)))
	})

	t.Run("one vector per bar from the 27th", func(t *testing.T) {
		bars := barsFromCloses(linear(90, 100, 0.5), 1_000_000)
		vectors := ComputeFeatures(bars)
		require.Len(t, vectors, 90-MinBars+1)

		for _, v := range vectors {
			assert.Len(t, v.Values(), FeatureCount)
			assert.Equal(t, 100.0, v.RSI14)
			assert.InDelta(t, 1.0, v.VolumeRatio10, 1e-9)
			assert.GreaterOrEqual(t, v.Volatility10, 0.0)
		}

		first := vectors[0]
		// closes 111, 111.5, 112, 112.5, 113
		assert.InDelta(t, 112.0, first.SMA5, 1e-9)
		assert.InDelta(t, 1.5/111.5*100, first.Momentum3, 1e-9)
	})

	t.Run("no look-ahead", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 100 + 5*math.Sin(float64(i))
		}
		bars := barsFromCloses(closes, 1000)
		all := ComputeFeatures(bars)

		for k := range all {
			prefix := bars[:MinBars+k]
			latest, err := Latest(prefix)
			require.NoError(t, err)
			assert.Equal(t, latest, all[k])
		}
	})
}

func TestLatest(t *testing.T) {
	_, err := Latest(barsFromCloses(linear(26, 100, 1), 1000))
	assert.ErrorIs(t, err, ErrInsufficientBars)

	v, err := Latest(barsFromCloses(linear(27, 100, 1), 1000))
	require.NoError(t, err)
	assert.InDelta(t, 124.0, v.SMA5, 1e-9)
	assert.InDelta(t, (126.0-123.0)/123.0*100, v.Momentum3, 1e-9)
}

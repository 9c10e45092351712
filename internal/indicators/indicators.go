// Package indicators turns ordered daily bars into the fixed-width feature
// vectors consumed by the forecaster.
//
// Every function is stateless: indicators are recomputed from the bars
// supplied on each call rather than maintained incrementally. Histories are
// short (a few hundred bars) and calls are on demand, so the quadratic total
// cost of ComputeFeatures is acceptable.
package indicators

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/trogers1052/stock-forecast-service/internal/models"
	"gonum.org/v1/gonum/stat"
)

const (
	// MinBars is the number of bars needed before the first feature vector
	// can be produced. EMA(26) is the longest trailing window.
	MinBars = 27

	// FeatureCount is the width of a FeatureVector.
	FeatureCount = 11

	rsiPeriod        = 14
	volatilityPeriod = 10
	volumePeriod     = 10
	neutralRSI       = 50.0
)

// ErrInsufficientBars is returned when fewer than MinBars bars are supplied.
var ErrInsufficientBars = errors.New("insufficient bars for feature computation")

// FeatureNames lists the features in the order returned by FeatureVector.Values.
var FeatureNames = []string{
	"sma5", "sma10", "sma20", "ema12", "ema26", "rsi14",
	"volatility10", "volumeRatio10", "momentum3", "momentum7", "priceChangePercent",
}

// FeatureVector is the derived technical summary of one bar and its history.
type FeatureVector struct {
	SMA5               float64 `json:"sma5"`
	SMA10              float64 `json:"sma10"`
	SMA20              float64 `json:"sma20"`
	EMA12              float64 `json:"ema12"`
	EMA26              float64 `json:"ema26"`
	RSI14              float64 `json:"rsi14"`
	Volatility10       float64 `json:"volatility10"`
	VolumeRatio10      float64 `json:"volumeRatio10"`
	Momentum3          float64 `json:"momentum3"`
	Momentum7          float64 `json:"momentum7"`
	PriceChangePercent float64 `json:"priceChangePercent"`
}

// Values returns the features in FeatureNames order.
func (f FeatureVector) Values() []float64 {
	return []float64{
		f.SMA5, f.SMA10, f.SMA20, f.EMA12, f.EMA26, f.RSI14,
		f.Volatility10, f.VolumeRatio10, f.Momentum3, f.Momentum7, f.PriceChangePercent,
	}
}

// ComputeFeatures returns one FeatureVector per bar starting at the 27th bar.
// Vector k only uses bars[0 : MinBars+k], never later bars. Bars must be in
// ascending date order. Fewer than MinBars bars yields nil.
func ComputeFeatures(bars []*models.PriceDataDaily) []FeatureVector {
	if len(bars) < MinBars {
		return nil
	}

	closes := Closes(bars)
	volumes := Volumes(bars)

	vectors := make([]FeatureVector, 0, len(bars)-MinBars+1)
	for i := MinBars - 1; i < len(bars); i++ {
		vectors = append(vectors, vectorAt(closes[:i+1], volumes[:i+1]))
	}
	return vectors
}

// Latest returns the feature vector for the most recent bar.
func Latest(bars []*models.PriceDataDaily) (FeatureVector, error) {
	if len(bars) < MinBars {
		return FeatureVector{}, ErrInsufficientBars
	}
	return vectorAt(Closes(bars), Volumes(bars)), nil
}

func vectorAt(closes, volumes []float64) FeatureVector {
	return FeatureVector{
		SMA5:               SMA(closes, 5),
		SMA10:              SMA(closes, 10),
		SMA20:              SMA(closes, 20),
		EMA12:              EMA(closes, 12),
		EMA26:              EMA(closes, 26),
		RSI14:              RSI(closes, rsiPeriod),
		Volatility10:       Volatility(closes, volatilityPeriod),
		VolumeRatio10:      VolumeRatio(volumes, volumePeriod),
		Momentum3:          Momentum(closes, 3),
		Momentum7:          Momentum(closes, 7),
		PriceChangePercent: PriceChangePercent(closes),
	}
}

// Closes extracts closing prices as float64.
func Closes(bars []*models.PriceDataDaily) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// Volumes extracts volumes as float64.
func Volumes(bars []*models.PriceDataDaily) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = float64(b.Volume)
	}
	return out
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// SMA is the mean of the last n closes, or the latest close when fewer
// than n are available.
func SMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return last(closes)
	}
	sma := talib.Sma(closes[len(closes)-n:], n)
	return sma[len(sma)-1]
}

// EMA is the exponential moving average with alpha 2/(n+1), seeded with the
// first close and iterated over the whole slice. Fewer than n closes
// degrades to the latest close.
func EMA(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return last(closes)
	}
	alpha := 2.0 / float64(n+1)
	ema := closes[0]
	for _, c := range closes[1:] {
		ema = c*alpha + ema*(1-alpha)
	}
	return ema
}

// RSI is Wilder's relative strength index. The first n deltas seed the
// average gain and loss, later deltas are smoothed with (avg*(n-1)+x)/n.
// Fewer than n+1 closes returns the neutral 50.
func RSI(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return neutralRSI
	}

	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	p := float64(n)
	avgGain /= p
	avgLoss /= p

	for i := n + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// Volatility is the population standard deviation of the last n closes,
// 0 when fewer than n are available.
func Volatility(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n {
		return 0
	}
	sd := stat.PopStdDev(closes[len(closes)-n:], nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// VolumeRatio divides the latest volume by the mean of the n volumes before
// it. It is 1 when the history is too short or that mean is zero.
func VolumeRatio(volumes []float64, n int) float64 {
	if n <= 0 || len(volumes) < n+1 {
		return 1
	}
	current := volumes[len(volumes)-1]
	avg := stat.Mean(volumes[len(volumes)-1-n:len(volumes)-1], nil)
	if avg == 0 {
		return 1
	}
	return current / avg
}

// Momentum is the percent change of the latest close against the close n
// bars earlier, 0 when that bar does not exist.
func Momentum(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return 0
	}
	base := closes[len(closes)-1-n]
	if base == 0 {
		return 0
	}
	return (last(closes) - base) / base * 100
}

// PriceChangePercent is the percent change against the previous close.
func PriceChangePercent(closes []float64) float64 {
	return Momentum(closes, 1)
}

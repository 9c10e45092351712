package forecast

import (
	"fmt"
	"math"
)

// Model kinds accepted by NewFactory.
const (
	ModelRandomForest = "forest"
	ModelRidge        = "ridge"
)

// Hyperparameters describes how a regressor was configured.
type Hyperparameters map[string]any

// Regressor is a trainable single-output regression model. Implementations
// are not safe for concurrent use; Forecaster serializes access.
type Regressor interface {
	Name() string
	Fit(x [][]float64, y []float64) error
	Predict(x []float64) (float64, error)
	Hyperparameters() Hyperparameters
}

// ModelFactory creates a fresh, untrained regressor.
type ModelFactory func() Regressor

// NewFactory returns a factory for the named model kind.
func NewFactory(kind string, forest ForestConfig, ridgeLambda float64) (ModelFactory, error) {
	switch kind {
	case "", ModelRandomForest:
		return func() Regressor { return NewRandomForest(forest) }, nil
	case ModelRidge:
		return func() Regressor { return NewRidge(ridgeLambda) }, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}

func checkTrainingShape(x [][]float64, y []float64) (int, error) {
	if len(x) == 0 {
		return 0, fmt.Errorf("empty training set")
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("feature rows (%d) and targets (%d) differ", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return 0, fmt.Errorf("feature rows are empty")
	}
	for i, row := range x {
		if len(row) != width {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d contains a non-finite feature", i)
			}
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("target %d is not finite", i)
		}
	}
	return width, nil
}

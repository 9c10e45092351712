package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DefaultRidgeLambda is the L2 penalty used when none is configured.
const DefaultRidgeLambda = 1.0

// Ridge is an L2-regularized linear regression over standardized features.
// Unlike the forest it extrapolates beyond the range of the training
// targets.
type Ridge struct {
	lambda    float64
	means     []float64
	scales    []float64
	intercept float64
	weights   []float64
}

// NewRidge creates an untrained ridge regressor.
func NewRidge(lambda float64) *Ridge {
	if lambda <= 0 {
		lambda = DefaultRidgeLambda
	}
	return &Ridge{lambda: lambda}
}

func (r *Ridge) Name() string { return "ridge" }

func (r *Ridge) Hyperparameters() Hyperparameters {
	return Hyperparameters{
		"alpha":         r.lambda,
		"standardize":   true,
		"fit_intercept": true,
	}
}

// Fit solves (ZᵀZ + λI)w = Zᵀ(y - ȳ) where Z holds the standardized rows.
func (r *Ridge) Fit(x [][]float64, y []float64) error {
	width, err := checkTrainingShape(x, y)
	if err != nil {
		return err
	}
	n := len(x)

	means := make([]float64, width)
	scales := make([]float64, width)
	column := make([]float64, n)
	for j := 0; j < width; j++ {
		for i := range x {
			column[i] = x[i][j]
		}
		mean, sd := stat.PopMeanStdDev(column, nil)
		if sd == 0 {
			sd = 1
		}
		means[j], scales[j] = mean, sd
	}

	z := mat.NewDense(n, width, nil)
	for i, row := range x {
		for j, v := range row {
			z.Set(i, j, (v-means[j])/scales[j])
		}
	}

	yMean := stat.Mean(y, nil)
	centered := mat.NewVecDense(n, nil)
	for i, v := range y {
		centered.SetVec(i, v-yMean)
	}

	var gram mat.Dense
	gram.Mul(z.T(), z)
	for j := 0; j < width; j++ {
		gram.Set(j, j, gram.At(j, j)+r.lambda)
	}

	var rhs mat.VecDense
	rhs.MulVec(z.T(), centered)

	var w mat.VecDense
	if err := w.SolveVec(&gram, &rhs); err != nil {
		return fmt.Errorf("failed to solve normal equations: %w", err)
	}

	r.means = means
	r.scales = scales
	r.intercept = yMean
	r.weights = mat.Col(nil, 0, &w)
	return nil
}

// Predict returns the intercept plus the weighted standardized features.
func (r *Ridge) Predict(x []float64) (float64, error) {
	if r.weights == nil {
		return 0, ErrNotTrained
	}
	if len(x) != len(r.weights) {
		return 0, fmt.Errorf("got %d features, want %d", len(x), len(r.weights))
	}
	out := r.intercept
	for j, v := range x {
		out += r.weights[j] * (v - r.means[j]) / r.scales[j]
	}
	return out, nil
}

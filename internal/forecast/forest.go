package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// ForestConfig holds random forest hyperparameters.
type ForestConfig struct {
	Trees          int
	MaxDepth       int
	MinSamplesLeaf int
	// MaxFeatures is the number of features tried per split. Zero means
	// the square root of the feature count.
	MaxFeatures int
	Seed        uint64
}

// DefaultForestConfig is 100 trees of depth
// 10 with one sample per leaf, sqrt feature subsampling and seed 42.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:          100,
		MaxDepth:       10,
		MinSamplesLeaf: 1,
		Seed:           42,
	}
}

// RandomForest is a bagged ensemble of CART regression trees split on
// variance reduction. Training is deterministic for a given seed.
type RandomForest struct {
	cfg       ForestConfig
	trees     []*treeNode
	nFeatures int
	mtry      int
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// NewRandomForest creates an untrained forest, filling zero fields of cfg
// from DefaultForestConfig.
func NewRandomForest(cfg ForestConfig) *RandomForest {
	def := DefaultForestConfig()
	if cfg.Trees <= 0 {
		cfg.Trees = def.Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MinSamplesLeaf <= 0 {
		cfg.MinSamplesLeaf = def.MinSamplesLeaf
	}
	return &RandomForest{cfg: cfg}
}

func (f *RandomForest) Name() string { return "random_forest" }

func (f *RandomForest) Hyperparameters() Hyperparameters {
	maxFeatures := any("sqrt")
	if f.cfg.MaxFeatures > 0 {
		maxFeatures = f.cfg.MaxFeatures
	}
	return Hyperparameters{
		"n_estimators":     f.cfg.Trees,
		"max_depth":        f.cfg.MaxDepth,
		"min_samples_leaf": f.cfg.MinSamplesLeaf,
		"max_features":     maxFeatures,
		"bootstrap":        true,
		"random_state":     f.cfg.Seed,
	}
}

// Fit grows cfg.Trees trees, each on a bootstrap sample of the rows.
func (f *RandomForest) Fit(x [][]float64, y []float64) error {
	width, err := checkTrainingShape(x, y)
	if err != nil {
		return err
	}

	mtry := f.cfg.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Sqrt(float64(width)))
	}
	mtry = max(1, min(mtry, width))

	rng := rand.New(rand.NewPCG(f.cfg.Seed, f.cfg.Seed))
	b := &treeBuilder{x: x, y: y, cfg: f.cfg, mtry: mtry, width: width, rng: rng}

	trees := make([]*treeNode, 0, f.cfg.Trees)
	for t := 0; t < f.cfg.Trees; t++ {
		sample := make([]int, len(y))
		for i := range sample {
			sample[i] = rng.IntN(len(y))
		}
		trees = append(trees, b.grow(sample, 0))
	}

	f.trees = trees
	f.nFeatures = width
	f.mtry = mtry
	return nil
}

// Predict averages the trees' leaf values for x.
func (f *RandomForest) Predict(x []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, ErrNotTrained
	}
	if len(x) != f.nFeatures {
		return 0, fmt.Errorf("got %d features, want %d", len(x), f.nFeatures)
	}

	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees)), nil
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeBuilder struct {
	x     [][]float64
	y     []float64
	cfg   ForestConfig
	mtry  int
	width int
	rng   *rand.Rand
}

func (b *treeBuilder) targets(rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = b.y[r]
	}
	return out
}

func (b *treeBuilder) grow(rows []int, depth int) *treeNode {
	ys := b.targets(rows)
	node := &treeNode{leaf: true, value: stat.Mean(ys, nil)}

	if depth >= b.cfg.MaxDepth || len(rows) < 2*b.cfg.MinSamplesLeaf {
		return node
	}
	if slices.Min(ys) == slices.Max(ys) {
		return node
	}

	feature, threshold, ok := b.bestSplit(rows)
	if !ok {
		return node
	}

	var left, right []int
	for _, r := range rows {
		if b.x[r][feature] <= threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit scans mtry random features and returns the threshold with the
// largest reduction in squared error.
func (b *treeBuilder) bestSplit(rows []int) (int, float64, bool) {
	n := len(rows)
	minLeaf := b.cfg.MinSamplesLeaf

	var total, totalSq float64
	for _, r := range rows {
		total += b.y[r]
		totalSq += b.y[r] * b.y[r]
	}
	parentSSE := totalSq - total*total/float64(n)

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, n)
	for _, feature := range b.rng.Perm(b.width)[:b.mtry] {
		copy(sorted, rows)
		slices.SortFunc(sorted, func(i, j int) int {
			switch {
			case b.x[i][feature] < b.x[j][feature]:
				return -1
			case b.x[i][feature] > b.x[j][feature]:
				return 1
			}
			return 0
		})

		var leftSum, leftSq float64
		for i := 0; i < n-1; i++ {
			yv := b.y[sorted[i]]
			leftSum += yv
			leftSq += yv * yv

			nl := i + 1
			nr := n - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := b.x[sorted[i]][feature], b.x[sorted[i+1]][feature]
			if lo == hi {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if gain := parentSSE - sse; gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

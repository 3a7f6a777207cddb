package ml

import (
	"fmt"
	"math/rand"

	"PricePulse/internal/domain/service"
)

// ForestParams mirror the training hyperparameters. MaxDepth 0 grows
// trees until the split constraints stop them.
type ForestParams struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams is the production configuration used for
// per-product price models.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

// Forest is a bagged ensemble of regression trees. Prediction is the
// mean over trees; PredictAll exposes the per-tree spread so callers
// can build uncertainty intervals.
type Forest struct {
	Params ForestParams `json:"params"`
	Roots  []*treeNode  `json:"roots"`
}

var _ service.DistributionRegressor = (*Forest)(nil)

// FitForest trains Params.Trees trees on bootstrap resamples of the
// training set. The seed fixes the resampling so the same data always
// yields the same model.
func FitForest(params ForestParams, features [][]float64, target []float64) (*Forest, error) {
	if len(features) == 0 || len(features) != len(target) {
		return nil, fmt.Errorf("fit forest: %d feature rows vs %d targets", len(features), len(target))
	}
	if params.Trees <= 0 {
		return nil, fmt.Errorf("fit forest: tree count %d", params.Trees)
	}

	depth := params.MaxDepth
	if depth <= 0 {
		depth = -1
	}

	rng := rand.New(rand.NewSource(params.Seed))
	n := len(features)

	f := &Forest{
		Params: params,
		Roots:  make([]*treeNode, params.Trees),
	}
	for t := 0; t < params.Trees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.Roots[t] = growTree(features, target, idx, depth, params.MinSamplesSplit, params.MinSamplesLeaf)
	}
	return f, nil
}

// Predict returns the ensemble mean for one feature row.
func (f *Forest) Predict(row []float64) float64 {
	if len(f.Roots) == 0 {
		return 0
	}
	sum := 0.0
	for _, root := range f.Roots {
		sum += root.predict(row)
	}
	return sum / float64(len(f.Roots))
}

// PredictAll returns every tree's prediction for one feature row.
func (f *Forest) PredictAll(row []float64) []float64 {
	out := make([]float64, len(f.Roots))
	for i, root := range f.Roots {
		out[i] = root.predict(row)
	}
	return out
}

package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampDataset builds n rows where the target is a linear function of
// the first column plus a second informative column.
func rampDataset(n int) ([][]float64, []float64) {
	features := make([][]float64, n)
	target := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		features[i] = []float64{x, x * 0.5, 1.0}
		target[i] = 2*x + 5
	}
	return features, target
}

func TestFitForestDeterministic(t *testing.T) {
	features, target := rampDataset(40)

	a, err := FitForest(DefaultForestParams(), features, target)
	require.NoError(t, err)
	b, err := FitForest(DefaultForestParams(), features, target)
	require.NoError(t, err)

	for _, row := range features {
		assert.Equal(t, a.Predict(row), b.Predict(row))
	}
}

func TestForestFitsMonotonicSignal(t *testing.T) {
	features, target := rampDataset(40)

	f, err := FitForest(DefaultForestParams(), features, target)
	require.NoError(t, err)

	low := f.Predict(features[5])
	mid := f.Predict(features[20])
	high := f.Predict(features[35])

	assert.Less(t, low, mid)
	assert.Less(t, mid, high)
	assert.InDelta(t, target[20], mid, 10.0)
}

func TestForestPredictAll(t *testing.T) {
	features, target := rampDataset(30)

	f, err := FitForest(DefaultForestParams(), features, target)
	require.NoError(t, err)

	all := f.PredictAll(features[15])
	require.Len(t, all, DefaultForestParams().Trees)

	sum := 0.0
	for _, v := range all {
		sum += v
	}
	assert.InDelta(t, f.Predict(features[15]), sum/float64(len(all)), 1e-9)
}

func TestFitForestRejectsBadInput(t *testing.T) {
	_, err := FitForest(DefaultForestParams(), nil, nil)
	require.Error(t, err)

	_, err = FitForest(DefaultForestParams(), [][]float64{{1}}, []float64{1, 2})
	require.Error(t, err)

	params := DefaultForestParams()
	params.Trees = 0
	_, err = FitForest(params, [][]float64{{1}}, []float64{1})
	require.Error(t, err)
}

func TestForestConstantTarget(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {4}, {5}, {6}}
	target := []float64{9, 9, 9, 9, 9, 9}

	f, err := FitForest(DefaultForestParams(), features, target)
	require.NoError(t, err)

	assert.Equal(t, 9.0, f.Predict([]float64{3.5}))
}

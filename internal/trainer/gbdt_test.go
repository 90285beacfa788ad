package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearDataset(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		X[i] = []float64{x, x * 2}
		y[i] = 3*x + 5
	}
	return X, y
}

func TestFitGBLearnsInSample(t *testing.T) {
	X, y := linearDataset(50)

	model, err := FitGB(X, y, GBParams{
		NEstimators:  200,
		MaxDepth:     4,
		LearningRate: 0.1,
		Subsample:    1.0,
		Seed:         42,
	})
	require.NoError(t, err)

	for i := range X {
		assert.InDelta(t, y[i], model.Predict(X[i]), 2.0)
	}
}

func TestFitGBDeterministic(t *testing.T) {
	X, y := linearDataset(40)
	params := GBParams{NEstimators: 50, MaxDepth: 3, LearningRate: 0.1, Subsample: 0.8, Seed: 42}

	m1, err := FitGB(X, y, params)
	require.NoError(t, err)
	m2, err := FitGB(X, y, params)
	require.NoError(t, err)

	for i := range X {
		assert.Equal(t, m1.Predict(X[i]), m2.Predict(X[i]))
	}
}

func TestFitGBEmptyInput(t *testing.T) {
	_, err := FitGB(nil, nil, GBParams{NEstimators: 10, MaxDepth: 2, LearningRate: 0.1, Subsample: 1.0, Seed: 1})
	assert.Error(t, err)
}

func TestFitGBConstantTarget(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}

	model, err := FitGB(X, y, GBParams{NEstimators: 20, MaxDepth: 2, LearningRate: 0.1, Subsample: 1.0, Seed: 1})
	require.NoError(t, err)

	assert.InDelta(t, 7.0, model.Predict([]float64{2.5}), 1e-6)
}

func TestMetrics(t *testing.T) {
	y := []float64{1, 2, 3, 4}

	assert.InDelta(t, 0.0, meanAbsoluteError(y, y), 1e-12)
	assert.InDelta(t, 1.0, rSquared(y, y), 1e-12)

	off := []float64{2, 3, 4, 5}
	assert.InDelta(t, 1.0, meanAbsoluteError(y, off), 1e-12)
}

package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePerfectPrediction(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	m, err := Evaluate(y, y)
	require.NoError(t, err)
	assert.Equal(t, 4, m.N)
	assert.Equal(t, 0.0, m.SSE)
	assert.Equal(t, 0.0, m.MSE)
	assert.Equal(t, 1.0, m.R2)
	assert.True(t, m.Defined())
}

func TestEvaluateMeanPredictor(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	yhat := []float64{2.5, 2.5, 2.5, 2.5}
	m, err := Evaluate(y, yhat)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, m.SSE, 1e-12)
	assert.InDelta(t, 1.25, m.MSE, 1e-12)
	assert.InDelta(t, 0.0, m.R2, 1e-12)
	assert.InDelta(t, 1.0, m.MAE, 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), m.RMSE, 1e-12)
	assert.InDelta(t, 5.0, m.SSTot, 1e-12)
}

func TestEvaluateNegativeR2(t *testing.T) {
	m, err := Evaluate([]float64{1, 2, 3}, []float64{3, 2, 1})
	require.NoError(t, err)
	assert.InDelta(t, 8.0, m.SSE, 1e-12)
	assert.InDelta(t, -3.0, m.R2, 1e-12)
}

func TestEvaluateConstantTarget(t *testing.T) {
	m, err := Evaluate([]float64{5, 5, 5}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.SSE, 1e-12)
	assert.Equal(t, 0.0, m.SSTot)
	assert.True(t, math.IsNaN(m.R2))
	assert.False(t, m.Defined())
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	_, err := Evaluate([]float64{1, 2}, []float64{1})
	assert.Error(t, err)
	_, err = Evaluate([]float64{1}, []float64{1})
	assert.Error(t, err)
	_, err = Evaluate(nil, nil)
	assert.Error(t, err)
}

func TestR2MatchesEvaluate(t *testing.T) {
	y := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	yhat := []float64{2.5, 1.5, 4, 2, 5, 8, 2.5, 5}
	m, err := Evaluate(y, yhat)
	require.NoError(t, err)
	assert.InDelta(t, m.R2, R2(y, yhat), 1e-15)
	assert.InDelta(t, m.MSE, MSE(y, yhat), 1e-15)
	assert.InDelta(t, m.RMSE, RMSE(y, yhat), 1e-15)
}

func TestDegeneracyIsErrDegenerate(t *testing.T) {
	var err error = Degeneracy{Kind: IllConditioned, Condition: 1e16, Threshold: 1e12}
	assert.ErrorIs(t, err, ErrDegenerate)
	assert.Contains(t, err.Error(), "condition number")
	assert.Contains(t, Degeneracy{Kind: ZeroVariance}.Error(), "zero variance")
}

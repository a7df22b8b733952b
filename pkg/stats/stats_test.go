package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptive(t *testing.T) {
	x := []float64{4, 1, 3, 2}

	assert.Equal(t, 10.0, Sum(x))
	assert.Equal(t, 2.5, Mean(x))
	assert.InDelta(t, 1.25, Variance(x), 1e-12)
	assert.InDelta(t, math.Sqrt(1.25), Std(x), 1e-12)
	assert.Equal(t, 2.5, Median(x))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))

	min, max := MinMax(x)
	assert.Equal(t, 1.0, min)
	assert.Equal(t, 4.0, max)

	// Median must not reorder its input.
	assert.Equal(t, []float64{4, 1, 3, 2}, x)
}

func TestEmptyInputsAreNaN(t *testing.T) {
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.True(t, math.IsNaN(Variance(nil)))
	assert.True(t, math.IsNaN(Median(nil)))
	assert.Equal(t, 0.0, SumSquaredDev(nil))
}

func TestSumSquaredDevLargeValues(t *testing.T) {
	x := []float64{1e9 + 1, 1e9 + 2, 1e9 + 3}
	assert.InDelta(t, 2.0, SumSquaredDev(x), 1e-6)
}

func TestFinite(t *testing.T) {
	got := Finite([]float64{1, math.NaN(), 2, math.Inf(1), math.Inf(-1), 3})
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{
		{1, 10, 1},
		{1, 20, 3},
		{1, 30, 5},
	}
	s := NewStandardScaler()
	Z, err := s.FitTransform(X)
	require.NoError(t, err)

	for i := range Z {
		// constant column maps to zero, not NaN
		assert.Equal(t, 0.0, Z[i][0])
	}
	assert.InDelta(t, 0.0, Z[1][1], 1e-12)
	assert.InDelta(t, -Z[0][2], Z[2][2], 1e-12)
	assert.Equal(t, 10.0, X[0][1], "input must not be modified")

	_, err = NewStandardScaler().FitTransform(nil)
	assert.Error(t, err)
	assert.Error(t, NewStandardScaler().Fit([][]float64{{1, 2}, {3}}))
}

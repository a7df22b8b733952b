package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactoryBuildsFreshRegressors(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			f, err := NewFactory(name, DefaultParams())
			require.NoError(t, err)
			a, b := f(), f()
			require.NotNil(t, a)
			assert.NotSame(t, a, b)
		})
	}
}

func TestNewFactoryWiresParams(t *testing.T) {
	p := Params{Seed: 9, Trees: 7, ConditionThreshold: 1e6}

	f, err := NewFactory(NameRandomForest, p)
	require.NoError(t, err)
	rf := f().(*RandomForestRegressor)
	assert.Equal(t, 7, rf.NEstimators)
	assert.Equal(t, int64(9), rf.RandomState)

	f, err = NewFactory(NameNormalEquation, p)
	require.NoError(t, err)
	assert.Equal(t, 1e6, f().(*NormalEquation).ConditionThreshold)
}

func TestNewFactoryUnknown(t *testing.T) {
	_, err := NewFactory("svm", DefaultParams())
	assert.ErrorContains(t, err, "unknown model")
	assert.True(t, Known(NameDecisionTree))
	assert.False(t, Known("svm"))
	assert.Equal(t, []string{NameNormalEquation, NameDecisionTree, NameRandomForest}, DefaultModelSet)
}

func TestNewFactoryKNNDefaultsNeighbors(t *testing.T) {
	f, err := NewFactory(NameKNN, Params{})
	require.NoError(t, err)
	assert.Equal(t, DefaultNeighbors, f().(*KNNRegressor).K)

	f, err = NewFactory(NameKNN, Params{Neighbors: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, f().(*KNNRegressor).K)
}

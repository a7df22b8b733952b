package model

import (
	"fmt"
	"sort"
)

// Registered model names. Comparison order in a run is the order of the
// configured model set, not this list.
const (
	NameNormalEquation = "normal-equation"
	NameDecisionTree   = "decision-tree"
	NameRandomForest   = "random-forest"
	NameSGDLinear      = "sgd-linear"
	NameKNN            = "knn"
)

// DefaultNeighbors is used by the knn model when Params.Neighbors is unset.
const DefaultNeighbors = 5

// DefaultModelSet is the comparison order used when none is configured.
var DefaultModelSet = []string{NameNormalEquation, NameDecisionTree, NameRandomForest}

// Params carries the hyperparameters a run exposes for its estimators.
type Params struct {
	Seed               int64
	Trees              int
	ConditionThreshold float64
	// TreeWorkers bounds concurrent tree fits inside one forest; 0 => GOMAXPROCS.
	TreeWorkers int
	Neighbors   int
}

// DefaultParams matches the defaults of the backtest configuration.
func DefaultParams() Params {
	return Params{Seed: 42, Trees: 100, ConditionThreshold: DefaultConditionThreshold, Neighbors: DefaultNeighbors}
}

var registry = map[string]func(Params) Factory{
	NameNormalEquation: func(p Params) Factory {
		return func() Regressor {
			return NewNormalEquation(WithConditionThreshold(p.ConditionThreshold))
		}
	},
	NameDecisionTree: func(p Params) Factory {
		return func() Regressor {
			return NewDecisionTreeRegressor(WithRandomState(p.Seed))
		}
	},
	NameRandomForest: func(p Params) Factory {
		return func() Regressor {
			return NewRandomForestRegressor(
				WithNEstimators(p.Trees),
				WithForestSeed(p.Seed),
				WithForestWorkers(p.TreeWorkers),
			)
		}
	},
	NameSGDLinear: func(p Params) Factory {
		return func() Regressor {
			return NewSGDRegressor(0.01, 200, 32, p.Seed)
		}
	},
	NameKNN: func(p Params) Factory {
		k := p.Neighbors
		if k <= 0 {
			k = DefaultNeighbors
		}
		return func() Regressor {
			return NewKNNRegressor(k)
		}
	},
}

// NewFactory resolves a registered model name.
func NewFactory(name string, p Params) (Factory, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("model: unknown model %q (known: %v)", name, Names())
	}
	return mk(p), nil
}

// Names lists registered model names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Known reports whether name is registered.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

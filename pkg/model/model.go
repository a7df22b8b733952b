package model

import "errors"

// ErrNotFitted is returned by Predict before a successful Fit.
var ErrNotFitted = errors.New("model: not fitted")

// Regressor is the capability every backtested estimator exposes.
// X is row-major: one slice per sample, all of equal length.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Factory builds a fresh, unfitted Regressor. The harness calls it once per
// block so fitted state is never shared between blocks.
type Factory func() Regressor

// Diagnoser is implemented by regressors that can report numeric trouble
// met during Fit without failing it.
type Diagnoser interface {
	Diagnostics() []Degeneracy
}

// checkXY validates a training set and returns its feature count.
func checkXY(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("model: empty X")
	}
	if len(y) != len(X) {
		return 0, errors.New("model: X and y length mismatch")
	}
	p := len(X[0])
	if p == 0 {
		return 0, errors.New("model: X has no columns")
	}
	for i := range X {
		if len(X[i]) != p {
			return 0, errors.New("model: inconsistent number of features in X rows")
		}
	}
	return p, nil
}

// checkX validates a prediction matrix against the fitted feature count.
func checkX(X [][]float64, p int) error {
	for i := range X {
		if len(X[i]) != p {
			return errors.New("model: feature count mismatch between fit and predict")
		}
	}
	return nil
}

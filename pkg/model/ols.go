package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"demandlab/pkg/core"
)

const (
	// DefaultRCond drops singular values below RCond·σmax in the pseudo-inverse.
	DefaultRCond = 1e-15
	// DefaultConditionThreshold flags XᵗX as ill-conditioned above this.
	DefaultConditionThreshold = 1e12
)

// NormalEquation is ordinary least squares solved in closed form:
//
//	β = pinv(XᵗX)·(Xᵗy)
//
// X is expected to already carry a bias column when an intercept is wanted.
// The pseudo-inverse keeps β defined when XᵗX is singular, e.g. an
// indicator column that is constant inside a block.
type NormalEquation struct {
	RCond              float64
	ConditionThreshold float64

	beta        []float64
	cond        float64
	diagnostics []Degeneracy
}

// NormalEquationOption configures a NormalEquation.
type NormalEquationOption func(*NormalEquation)

func WithRCond(r float64) NormalEquationOption {
	return func(m *NormalEquation) { m.RCond = r }
}

func WithConditionThreshold(c float64) NormalEquationOption {
	return func(m *NormalEquation) { m.ConditionThreshold = c }
}

func NewNormalEquation(opts ...NormalEquationOption) *NormalEquation {
	m := &NormalEquation{
		RCond:              DefaultRCond,
		ConditionThreshold: DefaultConditionThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Fit solves for β on one training segment.
func (m *NormalEquation) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	xm, err := core.FromRows(X)
	if err != nil {
		return err
	}
	xd := xm.Dense()
	yv := mat.NewVecDense(len(y), append([]float64(nil), y...))

	var xtx mat.Dense
	xtx.Mul(xd.T(), xd)
	var xty mat.VecDense
	xty.MulVec(xd.T(), yv)

	pinv, cond, err := pseudoInverse(&xtx, m.RCond)
	if err != nil {
		return fmt.Errorf("normal equation: %w", err)
	}
	var beta mat.VecDense
	beta.MulVec(pinv, &xty)

	m.beta = make([]float64, p)
	for j := range m.beta {
		m.beta[j] = beta.AtVec(j)
	}
	m.cond = cond
	m.diagnostics = nil
	if m.ConditionThreshold > 0 && !(cond <= m.ConditionThreshold) {
		m.diagnostics = append(m.diagnostics, Degeneracy{
			Kind:      IllConditioned,
			Condition: cond,
			Threshold: m.ConditionThreshold,
		})
	}
	return nil
}

// Predict returns ŷ = X·β.
func (m *NormalEquation) Predict(X [][]float64) ([]float64, error) {
	if m.beta == nil {
		return nil, ErrNotFitted
	}
	if err := checkX(X, len(m.beta)); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return []float64{}, nil
	}
	xm, err := core.FromRows(X)
	if err != nil {
		return nil, err
	}
	return core.MulVec(xm, m.beta)
}

// Coefficients returns a copy of β, one entry per column of X.
func (m *NormalEquation) Coefficients() []float64 {
	return append([]float64(nil), m.beta...)
}

// Condition is the 2-norm condition number of the last XᵗX, +Inf when singular.
func (m *NormalEquation) Condition() float64 { return m.cond }

func (m *NormalEquation) Diagnostics() []Degeneracy {
	return append([]Degeneracy(nil), m.diagnostics...)
}

// pseudoInverse computes the Moore-Penrose inverse of a through its SVD,
// zeroing singular values at or below rcond·σmax, and returns σmax/σmin.
func pseudoInverse(a mat.Matrix, rcond float64) (*mat.Dense, float64, error) {
	r, c := a.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, math.NaN(), errors.New("svd factorization failed")
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	pinv := mat.NewDense(c, r, nil)
	if len(s) == 0 || s[0] == 0 {
		return pinv, math.Inf(1), nil
	}
	cond := math.Inf(1)
	if last := s[len(s)-1]; last > 0 {
		cond = s[0] / last
	}

	cutoff := rcond * s[0]
	_, k := v.Dims()
	vs := mat.NewDense(c, k, nil)
	for i := 0; i < k; i++ {
		if s[i] <= cutoff {
			continue
		}
		inv := 1 / s[i]
		for row := 0; row < c; row++ {
			vs.Set(row, i, v.At(row, i)*inv)
		}
	}
	pinv.Mul(vs, u.T())
	return pinv, cond, nil
}

package model

import (
	"math/rand"
	"runtime"
	"sync"

	"demandlab/pkg/optim"
	"demandlab/pkg/stats"
)

// SGDRegressor is linear regression fitted by mini-batch gradient descent
// on standardized features and target. It is the iterative counterpart of
// NormalEquation and converges to the same fit on well-conditioned data.
type SGDRegressor struct {
	W         []float64 // weights in standardized space
	b         float64   // bias in standardized space
	Lr        float64
	Epochs    int
	BatchSize int
	Seed      int64

	xScale      *stats.StandardScaler
	yMean, yStd float64
	fitted      bool
}

// NewSGDRegressor returns a regressor with the given learning rate,
// epoch count, batch size and seed.
func NewSGDRegressor(lr float64, epochs, batchSize int, seed int64) *SGDRegressor {
	return &SGDRegressor{Lr: lr, Epochs: epochs, BatchSize: batchSize, Seed: seed}
}

// Fit standardizes X and y, then runs Epochs passes of shuffled mini-batches.
func (m *SGDRegressor) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	m.xScale = stats.NewStandardScaler()
	Xs, err := m.xScale.FitTransform(X)
	if err != nil {
		return err
	}
	m.yMean = stats.Mean(y)
	m.yStd = stats.Std(y)
	if m.yStd == 0 {
		m.yStd = 1
	}
	ys := make([]float64, len(y))
	for i, v := range y {
		ys[i] = (v - m.yMean) / m.yStd
	}

	rnd := rand.New(rand.NewSource(m.Seed))
	m.W = make([]float64, p)
	for i := range m.W {
		m.W[i] = rnd.NormFloat64() * 0.01
	}
	m.b = 0
	opt := optim.NewSGD(m.Lr)

	for ep := 0; ep < m.Epochs; ep++ {
		for _, batch := range optim.Batches(len(Xs), m.BatchSize, rnd) {
			bx := make([][]float64, len(batch))
			by := make([]float64, len(batch))
			for k, i := range batch {
				bx[k] = Xs[i]
				by[k] = ys[i]
			}
			yhat := m.predictScaled(bx)
			_, dy := optim.MSE(by, yhat)
			gW := make([]float64, len(m.W))
			gb := 0.0
			for i, row := range bx {
				d := dy[i]
				for j, xij := range row {
					gW[j] += d * xij
				}
				gb += d
			}
			opt.Step(m.W, gW)
			m.b -= m.Lr * gb
		}
	}
	m.fitted = true
	return nil
}

// Predict maps X through the training scaler and returns ŷ in target units.
func (m *SGDRegressor) Predict(X [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, ErrNotFitted
	}
	if err := checkX(X, len(m.W)); err != nil {
		return nil, err
	}
	pred := m.predictScaled(m.xScale.Transform(X))
	for i := range pred {
		pred[i] = pred[i]*m.yStd + m.yMean
	}
	return pred, nil
}

// Bias returns the intercept in standardized space.
func (m *SGDRegressor) Bias() float64 {
	return m.b
}

// predictScaled spreads rows across GOMAXPROCS workers.
func (m *SGDRegressor) predictScaled(X [][]float64) []float64 {
	pred := make([]float64, len(X))
	if len(X) == 0 {
		return pred
	}
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		s := w * rowsPerWorker
		e := min(s+rowsPerWorker, len(X))
		if s >= e {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				sum := m.b
				for j, v := range X[i] {
					sum += m.W[j] * v
				}
				pred[i] = sum
			}
		}(s, e)
	}
	wg.Wait()
	return pred
}

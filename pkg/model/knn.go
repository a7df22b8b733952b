package model

import (
	"runtime"
	"sync"
)

// KNNRegressor predicts the mean target of the K nearest training rows.
// Equal distances keep the earlier training row, so predictions do not
// depend on scheduling.
type KNNRegressor struct {
	K int

	x [][]float64
	y []float64
	p int
}

// NewKNNRegressor returns a K-nearest-neighbours regressor; k < 1 becomes 1.
func NewKNNRegressor(k int) *KNNRegressor {
	return &KNNRegressor{K: max(k, 1)}
}

// Fit stores a copy of the training rows.
func (m *KNNRegressor) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	m.x = make([][]float64, len(X))
	for i, row := range X {
		m.x[i] = append([]float64(nil), row...)
	}
	m.y = append([]float64(nil), y...)
	m.p = p
	return nil
}

// Predict splits rows across GOMAXPROCS workers.
func (m *KNNRegressor) Predict(X [][]float64) ([]float64, error) {
	if m.x == nil {
		return nil, ErrNotFitted
	}
	if err := checkX(X, m.p); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	if len(X) == 0 {
		return out, nil
	}

	var wg sync.WaitGroup
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = m.predictSingle(X[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

func (m *KNNRegressor) predictSingle(xi []float64) float64 {
	type neighbour struct {
		d float64
		v float64
	}
	k := min(m.K, len(m.x))
	nbrs := make([]neighbour, 0, k)

	// nbrs stays sorted by distance; insertion is strict so earlier rows win ties.
	for j, xj := range m.x {
		d := euclidSquared(xi, xj)
		if len(nbrs) == k && d >= nbrs[k-1].d {
			continue
		}
		if len(nbrs) < k {
			nbrs = append(nbrs, neighbour{})
		}
		pos := len(nbrs) - 1
		for pos > 0 && nbrs[pos-1].d > d {
			nbrs[pos] = nbrs[pos-1]
			pos--
		}
		nbrs[pos] = neighbour{d: d, v: m.y[j]}
	}

	sum := 0.0
	for _, n := range nbrs {
		sum += n.v
	}
	return sum / float64(len(nbrs))
}

// euclidSquared is the squared Euclidean distance; ordering is all we need.
func euclidSquared(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

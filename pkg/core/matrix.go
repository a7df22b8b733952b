package core

import (
	"errors"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major matrix. The design matrix of a run is one
// Matrix; train and test segments are row-range views into it.
type Matrix struct {
	R, C int
	Data []float64
}

// NewMatrix allocates a zero matrix.
func NewMatrix(r, c int) *Matrix {
	return &Matrix{R: r, C: c, Data: make([]float64, r*c)}
}

// FromRows creates a Matrix from a nested slice (copies the values).
func FromRows(a [][]float64) (*Matrix, error) {
	r := len(a)
	if r == 0 {
		return &Matrix{}, nil
	}
	c := len(a[0])
	m := NewMatrix(r, c)
	for i := 0; i < r; i++ {
		if len(a[i]) != c {
			return nil, errors.New("core: inconsistent number of columns in rows")
		}
		copy(m.Data[i*c:(i+1)*c], a[i])
	}
	return m, nil
}

// At returns element (i, j).
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.C+j] }

// Set sets element (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.Data[i*m.C+j] = v }

// Row returns row i as a slice sharing the matrix storage. Its capacity is
// clipped so an append can never write into the next row.
func (m *Matrix) Row(i int) []float64 {
	s, e := i*m.C, (i+1)*m.C
	return m.Data[s:e:e]
}

// Col returns a copy of column j.
func (m *Matrix) Col(j int) []float64 {
	v := make([]float64, m.R)
	for i := 0; i < m.R; i++ {
		v[i] = m.Data[i*m.C+j]
	}
	return v
}

// RowRange returns rows [start, end) as a view sharing storage with m.
func (m *Matrix) RowRange(start, end int) *Matrix {
	if start < 0 || end > m.R || start > end {
		panic("core: row range out of bounds")
	}
	s, e := start*m.C, end*m.C
	return &Matrix{R: end - start, C: m.C, Data: m.Data[s:e:e]}
}

// Rows returns the matrix as row slices sharing storage with m.
func (m *Matrix) Rows() [][]float64 {
	out := make([][]float64, m.R)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Clone deep copies the matrix.
func (m *Matrix) Clone() *Matrix {
	n := &Matrix{R: m.R, C: m.C, Data: make([]float64, len(m.Data))}
	copy(n.Data, m.Data)
	return n
}

// Dense returns a gonum copy of the matrix, safe to hand to code that
// writes into its receiver.
func (m *Matrix) Dense() *mat.Dense {
	if m.R == 0 || m.C == 0 {
		return &mat.Dense{}
	}
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return mat.NewDense(m.R, m.C, data)
}

// MulVec computes m·v, splitting rows across CPU cores.
func MulVec(m *Matrix, v []float64) ([]float64, error) {
	if m.C != len(v) {
		return nil, errors.New("core: dimension mismatch")
	}
	out := make([]float64, m.R)
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (m.R + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, m.R)
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(rs, re int) {
			defer wg.Done()
			for i := rs; i < re; i++ {
				sum := 0.0
				row := m.Data[i*m.C : (i+1)*m.C]
				for j, x := range row {
					sum += x * v[j]
				}
				out[i] = sum
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

package dataprep

import (
	"math"

	"demandlab/pkg/core"
	"demandlab/pkg/data"
	"demandlab/pkg/errs"
)

// BiasColumn names the leading column of ones.
const BiasColumn = "bias"

// DesignMatrix is the numeric form of a record set: features X (optionally
// led by a bias column), target Y and the name of every column of X.
type DesignMatrix struct {
	X       *core.Matrix
	Y       []float64
	Columns []string
	Target  string
	HasBias bool
}

// Options controls BuildDesignMatrix.
type Options struct {
	AddBias bool
}

// BuildDesignMatrix converts frame into (X, y). The target and every time
// column are excluded from X; booleans become 0/1; categorical columns are
// expanded into sorted-level indicators with the first level dropped.
// Columns keep schema order, so train and test segments sliced from one
// matrix always line up.
func BuildDesignMatrix(frame *data.Frame, target string, opts Options) (*DesignMatrix, error) {
	tcol, ok := frame.Column(target)
	if !ok {
		return nil, errs.Schema(target, "target column not found")
	}
	y, err := numeric(tcol)
	if err != nil {
		return nil, err
	}

	var (
		names    []string
		features [][]float64
	)
	for _, c := range frame.Columns() {
		if c.Name == target || c.Kind == data.Time {
			continue
		}
		if c.Kind == data.Category {
			levels, cols := EncodeCategorical(c.Strings, true)
			for l, level := range levels {
				names = append(names, c.Name+"_"+level)
				features = append(features, cols[l])
			}
			continue
		}
		v, err := numeric(c)
		if err != nil {
			return nil, err
		}
		names = append(names, c.Name)
		features = append(features, v)
	}
	if len(features) == 0 {
		return nil, errs.Schema("", "no feature columns remain after excluding %q and time columns", target)
	}

	offset := 0
	if opts.AddBias {
		names = append([]string{BiasColumn}, names...)
		offset = 1
	}
	n := frame.Len()
	X := core.NewMatrix(n, len(names))
	for i := 0; i < n; i++ {
		if opts.AddBias {
			X.Set(i, 0, 1)
		}
		for j, col := range features {
			X.Set(i, j+offset, col[i])
		}
	}

	return &DesignMatrix{
		X:       X,
		Y:       y,
		Columns: names,
		Target:  target,
		HasBias: opts.AddBias,
	}, nil
}

// numeric returns a float copy of a Float or Bool column.
func numeric(c *data.Column) ([]float64, error) {
	switch c.Kind {
	case data.Float:
		out := make([]float64, len(c.Floats))
		for i, v := range c.Floats {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errs.Schema(c.Name, "non-finite value at row %d", i+1)
			}
			out[i] = v
		}
		return out, nil
	case data.Bool:
		out := make([]float64, len(c.Bools))
		for i, b := range c.Bools {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	}
	return nil, errs.Schema(c.Name, "%s column cannot be used as a number", c.Kind)
}

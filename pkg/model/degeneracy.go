package model

import (
	"errors"
	"fmt"
)

// ErrDegenerate matches every Degeneracy via errors.Is.
var ErrDegenerate = errors.New("numeric degeneracy")

// DegeneracyKind names what made a block/model pair numerically unreliable.
type DegeneracyKind string

const (
	// ZeroVariance: the test target is constant, so R² is undefined.
	ZeroVariance DegeneracyKind = "zero_variance"
	// IllConditioned: XᵗX of the training segment is (near) singular.
	IllConditioned DegeneracyKind = "ill_conditioned"
)

// Degeneracy is a non-fatal numeric condition attached to one pair's result.
type Degeneracy struct {
	Kind      DegeneracyKind `json:"kind"`
	Condition float64        `json:"condition,omitempty"`
	Threshold float64        `json:"threshold,omitempty"`
}

func (d Degeneracy) Error() string {
	switch d.Kind {
	case ZeroVariance:
		return "numeric degeneracy: test target has zero variance, R² undefined"
	case IllConditioned:
		return fmt.Sprintf("numeric degeneracy: condition number %.3g of XᵗX exceeds %.3g", d.Condition, d.Threshold)
	}
	return "numeric degeneracy: " + string(d.Kind)
}

func (d Degeneracy) Is(target error) bool { return target == ErrDegenerate }

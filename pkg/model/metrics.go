package model

import (
	"errors"
	"math"

	"demandlab/pkg/stats"
)

// Metrics scores one prediction vector against the actual test target.
// Every model is scored through Evaluate so numbers stay comparable.
type Metrics struct {
	N     int     `json:"n"`
	SSE   float64 `json:"sse"`
	MSE   float64 `json:"mse"`
	R2    float64 `json:"r2"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	SSTot float64 `json:"ss_tot"`
}

// Defined reports whether R² exists for this pair.
func (m Metrics) Defined() bool { return !math.IsNaN(m.R2) }

// Evaluate computes all metrics for equal-length y and ŷ with n > 1.
func Evaluate(yTrue, yPred []float64) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, errors.New("metrics: actual and predicted length mismatch")
	}
	if len(yTrue) <= 1 {
		return Metrics{}, errors.New("metrics: need more than one observation")
	}
	sse := SSE(yTrue, yPred)
	n := float64(len(yTrue))
	ssTot := stats.SumSquaredDev(yTrue)
	return Metrics{
		N:     len(yTrue),
		SSE:   sse,
		MSE:   sse / n,
		R2:    r2(sse, ssTot),
		MAE:   MAE(yTrue, yPred),
		RMSE:  math.Sqrt(sse / n),
		SSTot: ssTot,
	}, nil
}

// SSE is Σ(y - ŷ)².
func SSE(yTrue, yPred []float64) float64 {
	s := 0.0
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		s += d * d
	}
	return s
}

func MSE(yTrue, yPred []float64) float64 {
	return SSE(yTrue, yPred) / float64(len(yTrue))
}

func RMSE(yTrue, yPred []float64) float64 { return math.Sqrt(MSE(yTrue, yPred)) }

func MAE(yTrue, yPred []float64) float64 {
	n := float64(len(yTrue))
	s := 0.0
	for i := range yTrue {
		s += math.Abs(yPred[i] - yTrue[i])
	}
	return s / n
}

// R2 is 1 - SSE/SS_tot, NaN when y has zero variance.
func R2(yTrue, yPred []float64) float64 {
	return r2(SSE(yTrue, yPred), stats.SumSquaredDev(yTrue))
}

func r2(sse, ssTot float64) float64 {
	if ssTot == 0 {
		return math.NaN()
	}
	return 1 - sse/ssTot
}

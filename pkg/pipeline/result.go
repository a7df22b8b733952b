package pipeline

import (
	"math"

	"demandlab/pkg/model"
	"demandlab/pkg/split"
)

// BlockResult is the score of one model on one block. Actual and Predicted
// are copies owned by the result.
type BlockResult struct {
	Block     split.Block
	Model     string
	Actual    []float64
	Predicted []float64
	Metrics   model.Metrics
	Flags     []model.Degeneracy
	Err       error
}

// Defined reports whether the pair succeeded with a defined R².
func (r *BlockResult) Defined() bool {
	return r.Err == nil && r.Metrics.Defined()
}

// HasFlag reports whether a degeneracy of kind k was recorded.
func (r *BlockResult) HasFlag(k model.DegeneracyKind) bool {
	for _, f := range r.Flags {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// BlockOutcome collects every model's result on one block, in model order.
type BlockOutcome struct {
	Block    split.Block
	Results  []BlockResult
	Winner   string  // "" when no model has a defined R²
	WinnerR2 float64 // NaN without a winner
}

// Undecided reports whether the block has no winner.
func (o *BlockOutcome) Undecided() bool { return o.Winner == "" }

// Result is the outcome of one run, blocks ascending.
type Result struct {
	Schema    Schema
	Models    []string
	BlockSize int
	TrainSize int
	TestSize  int
	Dropped   int
	Blocks    []BlockOutcome
}

// Pairs yields every block result, block ascending then model order.
func (r *Result) Pairs() []*BlockResult {
	out := make([]*BlockResult, 0, len(r.Blocks)*len(r.Models))
	for i := range r.Blocks {
		for j := range r.Blocks[i].Results {
			out = append(out, &r.Blocks[i].Results[j])
		}
	}
	return out
}

// SelectWinner returns the index of the result with the highest defined R².
// Failed pairs and NaN scores never win; an equal score keeps the earlier
// model.
func SelectWinner(results []BlockResult) (int, bool) {
	best := -1
	bestR2 := math.Inf(-1)
	for i := range results {
		if !results[i].Defined() {
			continue
		}
		if r2 := results[i].Metrics.R2; best < 0 || r2 > bestR2 {
			best, bestR2 = i, r2
		}
	}
	return best, best >= 0
}

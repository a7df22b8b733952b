package model

import (
	"cmp"
	"errors"
	"math/rand"
	"slices"
	"sync"
)

// parallelSplitMin is the node size below which features are scanned serially.
const parallelSplitMin = 256

// DecisionTreeRegressor is a CART regression tree. Splits minimize the
// summed squared error of the two children; leaves predict the mean target.
type DecisionTreeRegressor struct {
	MaxDepth            int     // root depth = 0; 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	MaxFeatures         int     // 0 => all features; >0 => features sampled per node
	MinImpurityDecrease float64 // minimal per-sample variance reduction to accept a split
	RandomState         int64   // seeds feature sampling

	root      *dtNode
	nFeatures int
}

type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *dtNode
	right     *dtNode

	n     int
	value float64
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeRegressor) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.MinSamplesLeaf = n }
}
func WithMaxFeatures(k int) Option { return func(t *DecisionTreeRegressor) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeRegressor) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeRegressor) { t.RandomState = seed }
}

// NewDecisionTreeRegressor returns a fully grown tree unless options limit it.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Fit grows the tree on every row of X.
func (t *DecisionTreeRegressor) Fit(X [][]float64, y []float64) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitSample(X, y, idx)
}

// FitSample grows the tree on the rows named by idx. Repeated indices count
// once per occurrence, which is how bootstrap samples are passed in without
// copying X.
func (t *DecisionTreeRegressor) FitSample(X [][]float64, y []float64, idx []int) error {
	p, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if len(idx) == 0 {
		return errors.New("dtree: empty sample")
	}
	for _, i := range idx {
		if i < 0 || i >= len(X) {
			return errors.New("dtree: sample index out of range")
		}
	}
	rnd := rand.New(rand.NewSource(t.RandomState))
	t.nFeatures = p
	t.root = t.buildNode(X, y, idx, 0, p, rnd)
	return nil
}

// Predict walks each row to its leaf.
func (t *DecisionTreeRegressor) Predict(X [][]float64) ([]float64, error) {
	if t.root == nil {
		return nil, ErrNotFitted
	}
	if err := checkX(X, t.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.predictSingle(X[i])
	}
	return out, nil
}

// Depth is the length of the longest root-to-leaf path.
func (t *DecisionTreeRegressor) Depth() int { return depthOf(t.root) }

// Leaves counts terminal nodes.
func (t *DecisionTreeRegressor) Leaves() int { return leavesOf(t.root) }

func (t *DecisionTreeRegressor) predictSingle(x []float64) float64 {
	node := t.root
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	leftIdx   []int
	rightIdx  []int
}

// pair is a feature value with the row it came from.
type pair struct {
	v float64
	i int
}

func (t *DecisionTreeRegressor) buildNode(X [][]float64, y []float64, idx []int, depth, p int, rnd *rand.Rand) *dtNode {
	mean, sse := meanSSE(y, idx)
	node := &dtNode{n: len(idx), value: mean}

	if sse == 0 || len(idx) < max(t.MinSamplesSplit, 2*max(t.MinSamplesLeaf, 1)) {
		node.isLeaf = true
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		node.isLeaf = true
		return node
	}

	featIndices := make([]int, p)
	for j := range featIndices {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	// One slot per candidate feature; scanning slots in order makes the
	// first feature win ties regardless of goroutine scheduling.
	results := make([]splitResult, len(featIndices))
	if len(idx) >= parallelSplitMin && len(featIndices) > 1 {
		var wg sync.WaitGroup
		for k, f := range featIndices {
			wg.Add(1)
			go func(k, f int) {
				defer wg.Done()
				results[k] = t.findBestSplitForFeature(X, y, idx, f, mean, sse)
			}(k, f)
		}
		wg.Wait()
	} else {
		for k, f := range featIndices {
			results[k] = t.findBestSplitForFeature(X, y, idx, f, mean, sse)
		}
	}

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain/float64(len(idx)) <= t.MinImpurityDecrease {
		node.isLeaf = true
		return node
	}

	node.feature = best.feature
	node.threshold = best.threshold
	node.left = t.buildNode(X, y, best.leftIdx, depth+1, p, rnd)
	node.right = t.buildNode(X, y, best.rightIdx, depth+1, p, rnd)
	return node
}

// findBestSplitForFeature scans midpoints between consecutive distinct
// values of feature f. Child SSEs come from running sums of the target
// centred on the node mean.
func (t *DecisionTreeRegressor) findBestSplitForFeature(X [][]float64, y []float64, idx []int, f int, mean, parentSSE float64) splitResult {
	// Gains within rounding of zero are not improvements.
	result := splitResult{feature: -1, gain: parentSSE * 1e-12}

	valid := make([]pair, len(idx))
	for k, ii := range idx {
		valid[k] = pair{X[ii][f], ii}
	}
	slices.SortStableFunc(valid, func(a, b pair) int { return cmp.Compare(a.v, b.v) })

	n := len(valid)
	totalSum, totalSq := 0.0, 0.0
	for _, pv := range valid {
		d := y[pv.i] - mean
		totalSum += d
		totalSq += d * d
	}

	minLeaf := max(t.MinSamplesLeaf, 1)
	leftSum, leftSq := 0.0, 0.0
	bestS := -1
	for s := 1; s < n; s++ {
		d := y[valid[s-1].i] - mean
		leftSum += d
		leftSq += d * d
		if valid[s].v == valid[s-1].v {
			continue
		}
		if !okSplit(s, n-s, minLeaf) {
			continue
		}
		nl, nr := float64(s), float64(n-s)
		rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
		sseL := leftSq - leftSum*leftSum/nl
		sseR := rightSq - rightSum*rightSum/nr
		gain := parentSSE - (sseL + sseR)
		if gain > result.gain {
			result.gain = gain
			result.feature = f
			result.threshold = (valid[s-1].v + valid[s].v) / 2.0
			bestS = s
		}
	}
	if bestS < 0 {
		return result
	}
	result.leftIdx = indicesFromPairs(valid[:bestS])
	result.rightIdx = indicesFromPairs(valid[bestS:])
	return result
}

func meanSSE(y []float64, idx []int) (float64, float64) {
	mean := 0.0
	for _, i := range idx {
		mean += y[i]
	}
	mean /= float64(len(idx))
	sse := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	return mean, sse
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}

func okSplit(left, right, minLeaf int) bool {
	return left >= minLeaf && right >= minLeaf
}

func depthOf(n *dtNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	return 1 + max(depthOf(n.left), depthOf(n.right))
}

func leavesOf(n *dtNode) int {
	if n == nil {
		return 0
	}
	if n.isLeaf {
		return 1
	}
	return leavesOf(n.left) + leavesOf(n.right)
}

// Package split partitions an ordered series into consecutive, fixed-size
// blocks, each made of a leading training segment and a trailing test
// segment. Rows are never shuffled: within a block, training data always
// precedes test data in time.
package split

import (
	"iter"

	"demandlab/pkg/errs"
)

// MinTestSize is the smallest test segment a block may hold.
const MinTestSize = 2

// Block is the index range [Start, End) of one window, trained on
// [Start, TrainEnd) and tested on [TrainEnd, End).
type Block struct {
	ID       int // 1-based, for display
	Index    int // 0-based position in the schedule
	Start    int
	TrainEnd int
	End      int
}

func (b Block) TrainSize() int { return b.TrainEnd - b.Start }
func (b Block) TestSize() int  { return b.End - b.TrainEnd }
func (b Block) Size() int      { return b.End - b.Start }

// Schedule is an immutable block layout over a series of Total rows.
type Schedule struct {
	total     int
	blockSize int
	testSize  int
	n         int
}

// NewSchedule divides total rows into numBlocks windows of total/numBlocks
// rows each, the last testSize rows of every window held out.
func NewSchedule(total, numBlocks, testSize int) (*Schedule, error) {
	if numBlocks <= 0 {
		return nil, errs.Config("num_blocks", "must be positive, got %d", numBlocks)
	}
	if total < 0 {
		return nil, errs.Config("total_rows", "must not be negative, got %d", total)
	}
	return NewScheduleBySize(total, total/numBlocks, testSize)
}

// NewScheduleBySize lays out windows of blockSize rows. A trailing
// remainder shorter than blockSize is dropped.
func NewScheduleBySize(total, blockSize, testSize int) (*Schedule, error) {
	if blockSize <= 0 {
		return nil, errs.Config("block_size", "must be positive, got %d (total rows %d)", blockSize, total)
	}
	// R² needs at least two held-out rows.
	if testSize < MinTestSize {
		return nil, errs.Config("test_size", "must be at least %d, got %d", MinTestSize, testSize)
	}
	if testSize >= blockSize {
		return nil, errs.Config("test_size", "%d leaves no training rows in a block of %d", testSize, blockSize)
	}
	if total < 0 {
		return nil, errs.Config("total_rows", "must not be negative, got %d", total)
	}
	return &Schedule{
		total:     total,
		blockSize: blockSize,
		testSize:  testSize,
		n:         total / blockSize,
	}, nil
}

func (s *Schedule) Len() int       { return s.n }
func (s *Schedule) Total() int     { return s.total }
func (s *Schedule) BlockSize() int { return s.blockSize }
func (s *Schedule) TestSize() int  { return s.testSize }
func (s *Schedule) TrainSize() int { return s.blockSize - s.testSize }

// Dropped is the number of trailing rows that do not fill a block.
func (s *Schedule) Dropped() int { return s.total - s.n*s.blockSize }

// Block returns the i-th block, 0 <= i < Len().
func (s *Schedule) Block(i int) Block {
	if i < 0 || i >= s.n {
		panic("split: block index out of range")
	}
	start := i * s.blockSize
	return Block{
		ID:       i + 1,
		Index:    i,
		Start:    start,
		TrainEnd: start + s.TrainSize(),
		End:      start + s.blockSize,
	}
}

// All yields the blocks lazily in series order.
func (s *Schedule) All() iter.Seq2[int, Block] {
	return func(yield func(int, Block) bool) {
		for start, i := 0, 0; start+s.blockSize <= s.total; start, i = start+s.blockSize, i+1 {
			if !yield(i, s.Block(i)) {
				return
			}
		}
	}
}

// Blocks materialises the schedule.
func (s *Schedule) Blocks() []Block {
	out := make([]Block, 0, s.n)
	for _, b := range s.All() {
		out = append(out, b)
	}
	return out
}

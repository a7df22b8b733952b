package split

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandlab/pkg/errs"
)

func TestScenarioSixHundredRows(t *testing.T) {
	s, err := NewSchedule(600, 6, 20)
	require.NoError(t, err)

	assert.Equal(t, 100, s.BlockSize())
	assert.Equal(t, 80, s.TrainSize())
	assert.Equal(t, 20, s.TestSize())
	assert.Equal(t, 0, s.Dropped())

	blocks := s.Blocks()
	require.Len(t, blocks, 6)

	seen := make([]int, 600)
	for i, b := range blocks {
		assert.Equal(t, i+1, b.ID)
		assert.Equal(t, i, b.Index)
		assert.Equal(t, 80, b.TrainSize())
		assert.Equal(t, 20, b.TestSize())
		for r := b.Start; r < b.End; r++ {
			seen[r]++
		}
	}
	for r, c := range seen {
		assert.Equalf(t, 1, c, "row %d consumed %d times", r, c)
	}
}

func TestRemainderIsDropped(t *testing.T) {
	// Five years of daily data: 1827 days, 6 blocks of 304, test 100.
	s, err := NewSchedule(1827, 6, 100)
	require.NoError(t, err)
	assert.Equal(t, 304, s.BlockSize())
	assert.Equal(t, 204, s.TrainSize())
	assert.Equal(t, 6, s.Len())
	assert.Equal(t, 3, s.Dropped())
	assert.Equal(t, 1824, s.Block(5).End)

	s, err = NewScheduleBySize(250, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 50, s.Dropped())
	assert.Len(t, s.Blocks(), 2)
}

func TestBlockPropertiesHoldForValidConfigs(t *testing.T) {
	for total := 0; total <= 400; total += 37 {
		for k := 1; k <= 8; k++ {
			for test := 1; test <= 30; test += 7 {
				s, err := NewSchedule(total, k, test)
				if err != nil {
					assert.True(t, errors.Is(err, errs.ErrConfig))
					continue
				}
				assert.Equal(t, s.BlockSize(), s.TrainSize()+s.TestSize())
				assert.Equal(t, total/s.BlockSize(), s.Len())
				prevEnd := 0
				for _, b := range s.All() {
					assert.Equal(t, prevEnd, b.Start, "blocks are contiguous")
					assert.Equal(t, test, b.TestSize())
					assert.Equal(t, s.TrainSize(), b.TrainSize())
					assert.LessOrEqual(t, b.End, total)
					prevEnd = b.End
				}
			}
		}
	}
}

func TestInvalidConfigs(t *testing.T) {
	cases := []struct {
		name           string
		total, k, test int
		wantField      string
	}{
		{"zero blocks", 600, 0, 20, "num_blocks"},
		{"block too small", 5, 6, 1, "block_size"},
		{"test fills block", 600, 6, 100, "test_size"},
		{"test exceeds block", 600, 6, 150, "test_size"},
		{"zero test", 600, 6, 0, "test_size"},
		{"single test row", 600, 6, 1, "test_size"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSchedule(tc.total, tc.k, tc.test)
			require.Error(t, err)
			var ce *errs.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.wantField, ce.Field)
		})
	}
}

func TestAllStopsEarly(t *testing.T) {
	s, err := NewSchedule(600, 6, 20)
	require.NoError(t, err)
	n := 0
	for i := range s.All() {
		n++
		if i == 2 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Panics(t, func() { s.Block(6) })
}

package dataprep

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandlab/pkg/data"
	"demandlab/pkg/errs"
)

func enrichedFrame(t *testing.T) *data.Frame {
	t.Helper()
	start := time.Date(2012, 2, 28, 0, 0, 0, 0, time.UTC)
	var rs []data.Record
	for i := 0; i < 4; i++ {
		d := start.AddDate(0, 0, i)
		rs = append(rs, data.Record{
			Date:             d,
			TotalOrderDemand: float64(100 * i),
			OrderCount:       float64(i),
			Promotion:        i == 3,
			Season:           data.SeasonOf(d),
		})
	}
	return data.FromRecords(rs)
}

func TestBuildDesignMatrixLayout(t *testing.T) {
	dm, err := BuildDesignMatrix(enrichedFrame(t), data.ColDemand, Options{AddBias: true})
	require.NoError(t, err)

	// Season has levels {Spring, Winter}; Spring is the dropped reference.
	assert.Equal(t, []string{"bias", "Order_Count", "Holiday", "Black_Friday", "Promotion", "Season_Winter"}, dm.Columns)
	assert.True(t, dm.HasBias)
	assert.Equal(t, data.ColDemand, dm.Target)
	assert.Equal(t, []float64{0, 100, 200, 300}, dm.Y)

	require.Equal(t, 4, dm.X.R)
	require.Equal(t, 6, dm.X.C)
	// 2012-02-28, 2012-02-29 are Winter; 03-01, 03-02 are Spring.
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 1}, dm.X.Row(0))
	assert.Equal(t, []float64{1, 3, 0, 0, 1, 0}, dm.X.Row(3))
}

func TestBuildDesignMatrixWithoutBias(t *testing.T) {
	dm, err := BuildDesignMatrix(enrichedFrame(t), data.ColDemand, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Order_Count", dm.Columns[0])
	assert.False(t, dm.HasBias)
	assert.Equal(t, 5, dm.X.C)
}

func TestBuildDesignMatrixIsStable(t *testing.T) {
	f := enrichedFrame(t)
	a, err := BuildDesignMatrix(f, data.ColDemand, Options{AddBias: true})
	require.NoError(t, err)
	b, err := BuildDesignMatrix(f, data.ColDemand, Options{AddBias: true})
	require.NoError(t, err)
	assert.Equal(t, a.Columns, b.Columns)
	assert.Equal(t, a.X.Data, b.X.Data)
}

func TestBuildDesignMatrixSchemaErrors(t *testing.T) {
	_, err := BuildDesignMatrix(enrichedFrame(t), "Revenue", Options{})
	assert.True(t, errors.Is(err, errs.ErrSchema), "missing target")

	onlyTarget, err := data.NewFrame(
		data.TimeColumn("Date", []time.Time{time.Now()}),
		data.FloatColumn("y", []float64{1}),
	)
	require.NoError(t, err)
	_, err = BuildDesignMatrix(onlyTarget, "y", Options{AddBias: true})
	assert.True(t, errors.Is(err, errs.ErrSchema), "no features left, bias does not count")

	catTarget, err := data.NewFrame(
		data.CategoryColumn("y", []string{"a"}),
		data.FloatColumn("x", []float64{1}),
	)
	require.NoError(t, err)
	_, err = BuildDesignMatrix(catTarget, "y", Options{})
	assert.True(t, errors.Is(err, errs.ErrSchema), "categorical target")

	nanFeature, err := data.NewFrame(
		data.FloatColumn("y", []float64{1}),
		data.FloatColumn("x", []float64{math.NaN()}),
	)
	require.NoError(t, err)
	_, err = BuildDesignMatrix(nanFeature, "y", Options{})
	var se *errs.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "x", se.Field)
}

func TestSingleLevelCategoryContributesNothing(t *testing.T) {
	f, err := data.NewFrame(
		data.FloatColumn("y", []float64{1, 2}),
		data.CategoryColumn("Season", []string{"Winter", "Winter"}),
		data.FloatColumn("x", []float64{3, 4}),
	)
	require.NoError(t, err)
	dm, err := BuildDesignMatrix(f, "y", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, dm.Columns)
}

func TestEncodeCategorical(t *testing.T) {
	levels, cols := EncodeCategorical([]string{"b", "c", "a", "b"}, true)
	assert.Equal(t, []string{"b", "c"}, levels)
	assert.Equal(t, [][]float64{{1, 0, 0, 1}, {0, 1, 0, 0}}, cols)

	levels, cols = EncodeCategorical([]string{"b", "a"}, false)
	assert.Equal(t, []string{"a", "b"}, levels)
	assert.Equal(t, [][]float64{{0, 1}, {1, 0}}, cols)
}

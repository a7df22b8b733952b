package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameValidation(t *testing.T) {
	_, err := NewFrame(FloatColumn("a", []float64{1, 2}), FloatColumn("a", []float64{3, 4}))
	assert.Error(t, err, "duplicate names")

	_, err = NewFrame(FloatColumn("a", []float64{1, 2}), FloatColumn("b", []float64{3}))
	assert.Error(t, err, "length mismatch")

	f, err := NewFrame()
	require.NoError(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestFromRecords(t *testing.T) {
	day := time.Date(2012, 11, 23, 0, 0, 0, 0, time.UTC)
	f := FromRecords([]Record{
		{Date: day, TotalOrderDemand: 10, OrderCount: 1, BlackFriday: true, Season: SeasonOf(day)},
		{Date: day.AddDate(0, 0, 1), TotalOrderDemand: 0, Season: SeasonOf(day.AddDate(0, 0, 1))},
	})

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, []string{ColDate, ColDemand, ColOrderCount, ColHoliday, ColBlackFriday, ColPromotion, ColSeason}, f.Names())

	bf, ok := f.Column(ColBlackFriday)
	require.True(t, ok)
	assert.Equal(t, []bool{true, false}, bf.Bools)
	season, _ := f.Column(ColSeason)
	assert.Equal(t, []string{"Autumn", "Autumn"}, season.Strings)
	assert.NoError(t, f.CheckChronological(ColDate))
	assert.Error(t, f.CheckChronological(ColDemand))
	assert.Error(t, f.CheckChronological("missing"))
}

func TestSeasonOf(t *testing.T) {
	cases := map[time.Month]string{
		time.January: "Winter", time.April: "Spring", time.July: "Summer",
		time.October: "Autumn", time.December: "Winter",
	}
	for m, want := range cases {
		assert.Equal(t, want, SeasonOf(time.Date(2014, m, 1, 0, 0, 0, 0, time.UTC)), m.String())
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Float, Bool, Category, Time} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("decimal")
	assert.Error(t, err)
}

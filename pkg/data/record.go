package data

import "time"

// Column names of the enriched daily demand dataset.
const (
	ColDate        = "Date"
	ColDemand      = "Total_Order_Demand"
	ColOrderCount  = "Order_Count"
	ColHoliday     = "Holiday"
	ColBlackFriday = "Black_Friday"
	ColPromotion   = "Promotion"
	ColSeason      = "Season"
)

// Record is one calendar day of enriched demand for a single product.
type Record struct {
	Date             time.Time
	TotalOrderDemand float64
	OrderCount       float64
	Holiday          bool
	BlackFriday      bool
	Promotion        bool
	Season           string
}

// FromRecords lays records out as a Frame in the enriched dataset's
// column order.
func FromRecords(rs []Record) *Frame {
	n := len(rs)
	dates := make([]time.Time, n)
	demand := make([]float64, n)
	orders := make([]float64, n)
	holiday := make([]bool, n)
	blackFriday := make([]bool, n)
	promotion := make([]bool, n)
	season := make([]string, n)
	for i, r := range rs {
		dates[i] = r.Date
		demand[i] = r.TotalOrderDemand
		orders[i] = r.OrderCount
		holiday[i] = r.Holiday
		blackFriday[i] = r.BlackFriday
		promotion[i] = r.Promotion
		season[i] = r.Season
	}
	// names are distinct and lengths equal by construction
	f, _ := NewFrame(
		TimeColumn(ColDate, dates),
		FloatColumn(ColDemand, demand),
		FloatColumn(ColOrderCount, orders),
		BoolColumn(ColHoliday, holiday),
		BoolColumn(ColBlackFriday, blackFriday),
		BoolColumn(ColPromotion, promotion),
		CategoryColumn(ColSeason, season),
	)
	return f
}

// SeasonOf returns the meteorological season used by the enrichment step.
func SeasonOf(t time.Time) string {
	switch t.Month() {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Autumn"
	}
}

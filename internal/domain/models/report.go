package models

import "time"

// WeekBucket groups opportunities into one Monday-Friday work week keyed by
// their projected next order date, with summed recommendation values.
type WeekBucket struct {
	Start         time.Time
	End           time.Time
	Opportunities []Opportunity
	Conservative  float64
	Balanced      float64
	Aggressive    float64
}

// Report is the full assembled output of one report run: the three text
// sections plus the intermediate structures the chart layer consumes.
type Report struct {
	AccountID   string
	AccountName string
	GeneratedAt time.Time

	Overview     string
	WeekDetail   string
	TotalSummary string

	Weeks          []WeekBucket
	Opportunities  []Opportunity
	AccountCandles []Candle
	ProductCandles map[string][]Candle
}

package models

// Indicator is a single indicator result: either a computed value or
// "insufficient history". The zero value is the latter, so indicator series
// never default to a numeric value that could be mistaken for real data.
type Indicator struct {
	Value float64
	Valid bool
}

// Computed wraps a value in a valid Indicator.
func Computed(v float64) Indicator { return Indicator{Value: v, Valid: true} }

// Latest returns the last element of an indicator series, or an invalid
// Indicator for an empty series.
func Latest(series []Indicator) Indicator {
	if len(series) == 0 {
		return Indicator{}
	}
	return series[len(series)-1]
}

// IndicatorSet carries every derived series for one candle series. Slices are
// index-aligned with the candles they were computed from; entries before an
// indicator's minimum history are invalid.
type IndicatorSet struct {
	SMA       []Indicator
	EMA       []Indicator
	BBLower   []Indicator
	BBMiddle  []Indicator
	BBUpper   []Indicator
	RSI       []Indicator
	RSISmooth []Indicator

	MACD       []Indicator
	MACDSignal []Indicator
	MACDHist   []Indicator

	// Forward-decay estimates for the latest period: days until the trend
	// would sink to the lower/middle band if ordering stopped entirely.
	DaysUntilLowerBreach  Indicator
	DaysUntilMiddleBreach Indicator

	// InsufficientData is set only when the primary OHLC series itself is
	// absent, not when a secondary indicator lacks history.
	InsufficientData bool
}

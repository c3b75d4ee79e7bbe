package analytics

import (
	"math"
	"testing"
	"time"

	"SellingView/internal/domain/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			PeriodStart: start.AddDate(0, 0, i*3),
			Open:        c,
			High:        c,
			Low:         c,
			Close:       c,
			Volume:      1,
			UnitPrice:   10,
		}
	}
	return candles
}

func wavyCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 1000 + 200*math.Sin(float64(i)/4) + 10*float64(i%5)
	}
	return closes
}

func TestAnnotateEmptySeries(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(nil)
	if !set.InsufficientData {
		t.Fatalf("expected insufficient data flag")
	}
}

func TestAnnotateBandOrdering(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(wavyCloses(60)))
	if len(set.BBLower) == 0 {
		t.Fatalf("expected bands")
	}
	for i := range set.BBLower {
		if !set.BBLower[i].Valid {
			continue
		}
		if set.BBLower[i].Value > set.BBMiddle[i].Value || set.BBMiddle[i].Value > set.BBUpper[i].Value {
			t.Fatalf("band ordering violated at %d: %v %v %v",
				i, set.BBLower[i].Value, set.BBMiddle[i].Value, set.BBUpper[i].Value)
		}
	}
}

func TestAnnotateThresholds(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(wavyCloses(19)))
	if len(set.SMA) == 0 || !set.SMA[18].Valid {
		t.Fatalf("expected SMA at index 18")
	}
	if set.SMA[16].Valid {
		t.Fatalf("SMA valid before full window")
	}
	if len(set.BBLower) != 0 {
		t.Fatalf("bands computed below 20 periods")
	}
	if len(set.MACD) != 0 {
		t.Fatalf("MACD computed below 26 periods")
	}
	if set.InsufficientData {
		t.Fatalf("series with candles must not be flagged insufficient")
	}
}

func TestRSIFlatSeriesNeutral(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 500
	}
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(closes))
	rsi := models.Latest(set.RSI)
	if !rsi.Valid {
		t.Fatalf("expected RSI")
	}
	if rsi.Value != 50 {
		t.Fatalf("flat series RSI should be neutral, got %v", rsi.Value)
	}
}

func TestRSIWithinRange(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(wavyCloses(80)))
	for i, v := range set.RSI {
		if v.Valid && (v.Value < 0 || v.Value > 100) {
			t.Fatalf("RSI out of range at %d: %v", i, v.Value)
		}
	}
	if rsiSmooth := models.Latest(set.RSISmooth); !rsiSmooth.Valid {
		t.Fatalf("expected smoothed RSI with 80 periods")
	}
}

func TestDecayDaysBounds(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(wavyCloses(60)))
	for _, d := range []models.Indicator{set.DaysUntilLowerBreach, set.DaysUntilMiddleBreach} {
		if !d.Valid {
			t.Fatalf("expected decay estimates with bands present")
		}
		if d.Value < 0 || d.Value > 90*3 {
			t.Fatalf("decay days out of bounds: %v", d.Value)
		}
	}
}

func TestDecayZeroWhenBelowBand(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	if got := e.decayDays([]float64{100, 100, 100}, 50, 80); got != 0 {
		t.Fatalf("close below band should decay in 0 days, got %v", got)
	}
}

func TestMACDHistogramConsistency(t *testing.T) {
	e := NewIndicatorEngine(18, 3)
	set := e.Annotate(candlesFromCloses(wavyCloses(60)))
	for i := range set.MACDHist {
		if !set.MACDHist[i].Valid {
			continue
		}
		want := set.MACD[i].Value - set.MACDSignal[i].Value
		if math.Abs(set.MACDHist[i].Value-want) > 1e-9 {
			t.Fatalf("histogram mismatch at %d: %v != %v", i, set.MACDHist[i].Value, want)
		}
	}
}

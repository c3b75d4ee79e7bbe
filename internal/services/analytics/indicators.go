package analytics

import (
	"math"

	"SellingView/internal/domain/models"
)

const (
	bollingerLength = 20
	bollingerStdDev = 2.0
	rsiLength       = 14
	macdFast        = 12
	macdSlow        = 26
	macdSignalLen   = 9
	decayMaxSteps   = 90
	decayWindow     = 90
)

// IndicatorEngine annotates a candle series with moving averages, Bollinger
// bands, RSI, MACD and the forward-decay breach estimates. Every output
// slice is index-aligned with the input candles; entries below the minimum
// history threshold for their indicator stay invalid rather than carrying a
// fake neutral value.
type IndicatorEngine struct {
	maLength   int
	periodDays int
}

func NewIndicatorEngine(maLength, periodDays int) *IndicatorEngine {
	return &IndicatorEngine{maLength: maLength, periodDays: periodDays}
}

func (e *IndicatorEngine) Annotate(candles []models.Candle) models.IndicatorSet {
	var set models.IndicatorSet
	if len(candles) == 0 {
		set.InsufficientData = true
		return set
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	if len(closes) >= e.maLength {
		set.SMA = sma(closes, e.maLength)
		set.EMA = ema(closes, e.maLength)
	}

	if len(closes) >= bollingerLength {
		set.BBLower, set.BBMiddle, set.BBUpper = bollinger(closes, bollingerLength, bollingerStdDev)

		lower := models.Latest(set.BBLower)
		middle := models.Latest(set.BBMiddle)
		latestClose := closes[len(closes)-1]
		if lower.Valid {
			set.DaysUntilLowerBreach = models.Computed(float64(e.decayDays(closes, latestClose, lower.Value)))
		}
		if middle.Valid {
			set.DaysUntilMiddleBreach = models.Computed(float64(e.decayDays(closes, latestClose, middle.Value)))
		}
	}

	if len(closes) >= rsiLength {
		set.RSI = rsi(closes, rsiLength)
		if len(closes) >= 2*rsiLength {
			set.RSISmooth = smaIndicators(set.RSI, rsiLength)
		}
	}

	if len(closes) >= macdSlow {
		set.MACD, set.MACDSignal, set.MACDHist = macd(closes)
	}

	return set
}

// decayDays simulates orders stopping entirely: each step drops the oldest
// of the trailing close values and appends a zero, until the mean falls to
// the band or the step cap is hit. The result is steps converted to days.
// A close already at or below the band decays in zero days.
func (e *IndicatorEngine) decayDays(closes []float64, latestClose, band float64) int {
	if latestClose <= band {
		return 0
	}
	start := len(closes) - decayWindow
	if start < 0 {
		start = 0
	}
	window := append([]float64(nil), closes[start:]...)

	steps := 0
	for steps < decayMaxSteps {
		copy(window, window[1:])
		window[len(window)-1] = 0
		if mean(window) <= band {
			break
		}
		steps++
	}
	return steps * e.periodDays
}

func sma(values []float64, length int) []models.Indicator {
	out := make([]models.Indicator, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= length {
			sum -= values[i-length]
		}
		if i >= length-1 {
			out[i] = models.Computed(sum / float64(length))
		}
	}
	return out
}

// ema seeds with the simple mean of the first window, then applies the
// standard recursive smoothing with alpha = 2/(length+1).
func ema(values []float64, length int) []models.Indicator {
	out := make([]models.Indicator, len(values))
	if len(values) < length {
		return out
	}
	seed := mean(values[:length])
	out[length-1] = models.Computed(seed)
	alpha := 2.0 / float64(length+1)
	prev := seed
	for i := length; i < len(values); i++ {
		prev = values[i]*alpha + prev*(1-alpha)
		out[i] = models.Computed(prev)
	}
	return out
}

func smaIndicators(values []models.Indicator, length int) []models.Indicator {
	out := make([]models.Indicator, len(values))
	var sum float64
	run := 0 // consecutive valid entries ending at i
	for i, v := range values {
		if !v.Valid {
			sum, run = 0, 0
			continue
		}
		sum += v.Value
		run++
		if run > length {
			sum -= values[i-length].Value
			run = length
		}
		if run == length {
			out[i] = models.Computed(sum / float64(length))
		}
	}
	return out
}

// bollinger computes the middle band as a simple moving average and the
// outer bands at +-stdDev population standard deviations.
func bollinger(values []float64, length int, stdDev float64) (lower, middle, upper []models.Indicator) {
	lower = make([]models.Indicator, len(values))
	middle = make([]models.Indicator, len(values))
	upper = make([]models.Indicator, len(values))
	for i := length - 1; i < len(values); i++ {
		window := values[i-length+1 : i+1]
		m := mean(window)
		var ss float64
		for _, v := range window {
			d := v - m
			ss += d * d
		}
		sd := math.Sqrt(ss / float64(length))
		middle[i] = models.Computed(m)
		lower[i] = models.Computed(m - stdDev*sd)
		upper[i] = models.Computed(m + stdDev*sd)
	}
	return lower, middle, upper
}

// rsi uses Wilder's smoothing: the first average gain/loss is a simple mean,
// subsequent averages apply alpha = 1/length.
func rsi(values []float64, length int) []models.Indicator {
	out := make([]models.Indicator, len(values))
	if len(values) < length+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= length; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(length)
	avgLoss /= float64(length)
	out[length] = models.Computed(rsiValue(avgGain, avgLoss))

	alpha := 1.0 / float64(length)
	for i := length + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha
		out[i] = models.Computed(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func macd(values []float64) (line, signal, hist []models.Indicator) {
	line = make([]models.Indicator, len(values))
	signal = make([]models.Indicator, len(values))
	hist = make([]models.Indicator, len(values))

	fast := ema(values, macdFast)
	slow := ema(values, macdSlow)
	diff := make([]float64, 0, len(values))
	for i := range values {
		if fast[i].Valid && slow[i].Valid {
			line[i] = models.Computed(fast[i].Value - slow[i].Value)
			diff = append(diff, line[i].Value)
		}
	}
	if len(diff) == 0 {
		return line, signal, hist
	}

	sig := ema(diff, macdSignalLen)
	offset := len(values) - len(diff)
	for j, s := range sig {
		if !s.Valid {
			continue
		}
		i := offset + j
		signal[i] = s
		hist[i] = models.Computed(line[i].Value - s.Value)
	}
	return line, signal, hist
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

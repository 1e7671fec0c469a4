package features

import (
	"crypto-signal-engine/internal/marketdata"
)

// Divergence is a price/oscillator disagreement at recent swing points
type Divergence struct {
	Side      string `json:"side"`      // bullish or bearish
	Type      string `json:"type"`      // regular or hidden
	Indicator string `json:"indicator"` // RSI or StochRSI
}

// DetectDivergences compares the last two price swing extremes against the
// oscillator values at the same candles. Regular bearish: higher high in
// price, lower high in the oscillator. Hidden bullish: higher low in price
// with a lower low in the oscillator is the continuation variant mirrored.
// history must be aligned so its last element matches the last candle.
func DetectDivergences(candles []marketdata.Candle, history []float64, indicator string) []Divergence {
	divs := []Divergence{}

	const lookback = 3
	if len(candles) < lookback*2+2 || len(history) < 2 {
		return divs
	}

	highs, lows := findPivots(candles, lookback)

	// Offset between candle indexes and the (shorter) oscillator history.
	offset := len(candles) - len(history)

	valueAt := func(candleIdx int) (float64, bool) {
		i := candleIdx - offset
		if i < 0 || i >= len(history) {
			return 0, false
		}
		return history[i], true
	}

	if len(highs) >= 2 {
		a, b := highs[len(highs)-2], highs[len(highs)-1]
		va, okA := valueAt(a.CandleIndex)
		vb, okB := valueAt(b.CandleIndex)
		if okA && okB {
			if b.Price > a.Price && vb < va {
				divs = append(divs, Divergence{Side: "bearish", Type: "regular", Indicator: indicator})
			}
			if b.Price < a.Price && vb > va {
				divs = append(divs, Divergence{Side: "bearish", Type: "hidden", Indicator: indicator})
			}
		}
	}

	if len(lows) >= 2 {
		a, b := lows[len(lows)-2], lows[len(lows)-1]
		va, okA := valueAt(a.CandleIndex)
		vb, okB := valueAt(b.CandleIndex)
		if okA && okB {
			if b.Price < a.Price && vb > va {
				divs = append(divs, Divergence{Side: "bullish", Type: "regular", Indicator: indicator})
			}
			if b.Price > a.Price && vb < va {
				divs = append(divs, Divergence{Side: "bullish", Type: "hidden", Indicator: indicator})
			}
		}
	}

	return divs
}

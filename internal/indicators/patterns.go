package indicators

import (
	"math"

	"crypto-signal-engine/internal/marketdata"
)

// Pattern is a detected candlestick pattern on the recent candles
type Pattern struct {
	Name string `json:"name"`
	Type string `json:"type"` // BULLISH, BEARISH, NEUTRAL
}

// DetectCandlestickPatterns checks the last one or two candles for the
// classic single and double candle patterns.
func DetectCandlestickPatterns(candles []marketdata.Candle) []Pattern {
	if len(candles) == 0 {
		return nil
	}

	var patterns []Pattern
	last := candles[len(candles)-1]

	body := math.Abs(last.Close - last.Open)
	candleRange := last.High - last.Low
	upper := last.High - math.Max(last.Open, last.Close)
	lower := math.Min(last.Open, last.Close) - last.Low

	if candleRange > 0 {
		bodyPct := body / candleRange

		if bodyPct < 0.1 {
			patterns = append(patterns, Pattern{Name: "Doji", Type: "NEUTRAL"})
		}
		if lower >= 2*body && upper <= body && bodyPct < 0.4 {
			patterns = append(patterns, Pattern{Name: "Hammer", Type: "BULLISH"})
		}
		if upper >= 2*body && lower <= body && bodyPct < 0.4 {
			patterns = append(patterns, Pattern{Name: "Shooting Star", Type: "BEARISH"})
		}
	}

	if len(candles) >= 2 {
		prev := candles[len(candles)-2]

		prevBull := prev.Close > prev.Open
		lastBull := last.Close > last.Open

		if !prevBull && lastBull && last.Close > prev.Open && last.Open < prev.Close {
			patterns = append(patterns, Pattern{Name: "Bullish Engulfing", Type: "BULLISH"})
		}
		if prevBull && !lastBull && last.Close < prev.Open && last.Open > prev.Close {
			patterns = append(patterns, Pattern{Name: "Bearish Engulfing", Type: "BEARISH"})
		}
	}

	return patterns
}

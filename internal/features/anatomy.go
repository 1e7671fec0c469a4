package features

import (
	"math"

	"crypto-signal-engine/internal/marketdata"
)

// CandleAnatomy describes the last candle's shape. All percentages are of
// the candle's high-low range; a zero-range candle reports a doji with
// zeroed percentages.
type CandleAnatomy struct {
	Direction            string  `json:"direction"` // bull, bear, doji
	BodyPct              float64 `json:"bodyPct"`
	UpperWickPct         float64 `json:"upperWickPct"`
	LowerWickPct         float64 `json:"lowerWickPct"`
	CloseRelativeToRange float64 `json:"closeRelativeToRange"` // 0=low, 100=high
	CloseAboveEma21      bool    `json:"closeAboveEma21"`
	CloseBelowEma21      bool    `json:"closeBelowEma21"`
	Open                 float64 `json:"open"`
	High                 float64 `json:"high"`
	Low                  float64 `json:"low"`
	Close                float64 `json:"close"`
}

// AnalyzeAnatomy computes the anatomy of the last candle. ema21 may be nil
// when the EMA could not be computed for the timeframe.
func AnalyzeAnatomy(candles []marketdata.Candle, ema21 *float64) *CandleAnatomy {
	if len(candles) == 0 {
		return nil
	}
	c := candles[len(candles)-1]

	anatomy := &CandleAnatomy{
		Direction: "doji",
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
	}
	if ema21 != nil {
		anatomy.CloseAboveEma21 = c.Close > *ema21
		anatomy.CloseBelowEma21 = c.Close < *ema21
	}

	candleRange := c.High - c.Low
	if candleRange <= 0 {
		return anatomy
	}

	body := math.Abs(c.Close - c.Open)
	anatomy.BodyPct = body / candleRange * 100
	anatomy.UpperWickPct = (c.High - math.Max(c.Open, c.Close)) / candleRange * 100
	anatomy.LowerWickPct = (math.Min(c.Open, c.Close) - c.Low) / candleRange * 100
	anatomy.CloseRelativeToRange = (c.Close - c.Low) / candleRange * 100

	switch {
	case c.Close > c.Open:
		anatomy.Direction = "bull"
	case c.Close < c.Open:
		anatomy.Direction = "bear"
	}
	return anatomy
}

// PriceActionFlags are the two-candle price-action patterns
type PriceActionFlags struct {
	RejectionUp   bool `json:"rejectionUp"`
	RejectionDown bool `json:"rejectionDown"`
	EngulfingBull bool `json:"engulfingBull"`
	EngulfingBear bool `json:"engulfingBear"`
	InsideBar     bool `json:"insideBar"`
}

// DetectPriceAction evaluates the last two candles. Rejection requires the
// wick over half the range, a small body (under 30%) and a close in the
// opposite half.
func DetectPriceAction(candles []marketdata.Candle) PriceActionFlags {
	var flags PriceActionFlags
	if len(candles) < 2 {
		return flags
	}

	cur := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	candleRange := cur.High - cur.Low
	if candleRange > 0 {
		body := math.Abs(cur.Close - cur.Open)
		upper := cur.High - math.Max(cur.Open, cur.Close)
		lower := math.Min(cur.Open, cur.Close) - cur.Low
		closePos := (cur.Close - cur.Low) / candleRange

		flags.RejectionUp = upper > 0.5*candleRange && body < 0.3*candleRange && closePos < 0.5
		flags.RejectionDown = lower > 0.5*candleRange && body < 0.3*candleRange && closePos > 0.5
	}

	prevBull := prev.Close > prev.Open
	curBull := cur.Close > cur.Open
	flags.EngulfingBull = !prevBull && curBull && cur.Close > prev.Open && cur.Open < prev.Close
	flags.EngulfingBear = prevBull && !curBull && cur.Close < prev.Open && cur.Open > prev.Close

	flags.InsideBar = cur.High <= prev.High && cur.Low >= prev.Low
	return flags
}

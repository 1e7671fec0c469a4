package features

import (
	"math"

	"crypto-signal-engine/internal/marketdata"
)

// SwingPivot is a confirmed local extreme
type SwingPivot struct {
	Price       float64 `json:"price"`
	CandleIndex int     `json:"candleIndex"`
	Timestamp   int64   `json:"timestamp"`
	Type        string  `json:"type"` // high or low
}

// StructureEvent is a break-of-structure or change-of-character
type StructureEvent struct {
	Type      string  `json:"type"`      // BOS or CHOCH
	Direction string  `json:"direction"` // bullish or bearish
	FromSwing float64 `json:"fromSwing"`
	ToSwing   float64 `json:"toSwing"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// MarketStructure summarizes swing-based structure for a timeframe. The
// container is always structurally complete; short series produce
// "unknown" with empty events.
type MarketStructure struct {
	CurrentStructure string          `json:"currentStructure"` // uptrend, downtrend, flat, unknown
	LastBOS          *StructureEvent `json:"lastBOS"`
	LastCHOCH        *StructureEvent `json:"lastCHOCH"`
	SwingHighs       []SwingPivot    `json:"swingHighs"`
	SwingLows        []SwingPivot    `json:"swingLows"`
}

// findPivots locates local extremes confirmed by lookback candles on both
// sides.
func findPivots(candles []marketdata.Candle, lookback int) (highs, lows []SwingPivot) {
	for i := lookback; i < len(candles)-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, SwingPivot{
				Price: candles[i].High, CandleIndex: i,
				Timestamp: candles[i].Timestamp, Type: "high",
			})
		}
		if isLow {
			lows = append(lows, SwingPivot{
				Price: candles[i].Low, CandleIndex: i,
				Timestamp: candles[i].Timestamp, Type: "low",
			})
		}
	}
	return highs, lows
}

// AnalyzeMarketStructure derives the swing structure with the most recent
// BOS and CHOCH events from a 5-candle pivot scan.
func AnalyzeMarketStructure(candles []marketdata.Candle) MarketStructure {
	ms := MarketStructure{
		CurrentStructure: "unknown",
		SwingHighs:       []SwingPivot{},
		SwingLows:        []SwingPivot{},
	}

	const lookback = 5
	if len(candles) < lookback*2+1 {
		return ms
	}

	highs, lows := findPivots(candles, lookback)
	ms.SwingHighs = keepLastPivots(highs, 10)
	ms.SwingLows = keepLastPivots(lows, 10)

	if len(highs) < 2 || len(lows) < 2 {
		ms.CurrentStructure = "flat"
		return ms
	}

	lastHigh, prevHigh := highs[len(highs)-1], highs[len(highs)-2]
	lastLow, prevLow := lows[len(lows)-1], lows[len(lows)-2]

	higherHighs := lastHigh.Price > prevHigh.Price
	higherLows := lastLow.Price > prevLow.Price
	lowerHighs := lastHigh.Price < prevHigh.Price
	lowerLows := lastLow.Price < prevLow.Price

	switch {
	case higherHighs && higherLows:
		ms.CurrentStructure = "uptrend"
	case lowerHighs && lowerLows:
		ms.CurrentStructure = "downtrend"
	default:
		ms.CurrentStructure = "flat"
	}

	// BOS: a close beyond the latest same-side swing in trend direction.
	// CHOCH: a close beyond the latest opposite swing against the trend.
	lastClose := candles[len(candles)-1].Close
	lastTS := candles[len(candles)-1].Timestamp

	if ms.CurrentStructure == "uptrend" && lastClose > lastHigh.Price {
		ms.LastBOS = &StructureEvent{
			Type: "BOS", Direction: "bullish",
			FromSwing: prevHigh.Price, ToSwing: lastHigh.Price,
			Price: lastClose, Timestamp: lastTS,
		}
	}
	if ms.CurrentStructure == "downtrend" && lastClose < lastLow.Price {
		ms.LastBOS = &StructureEvent{
			Type: "BOS", Direction: "bearish",
			FromSwing: prevLow.Price, ToSwing: lastLow.Price,
			Price: lastClose, Timestamp: lastTS,
		}
	}
	if ms.CurrentStructure == "uptrend" && lastClose < lastLow.Price {
		ms.LastCHOCH = &StructureEvent{
			Type: "CHOCH", Direction: "bearish",
			FromSwing: prevLow.Price, ToSwing: lastLow.Price,
			Price: lastClose, Timestamp: lastTS,
		}
	}
	if ms.CurrentStructure == "downtrend" && lastClose > lastHigh.Price {
		ms.LastCHOCH = &StructureEvent{
			Type: "CHOCH", Direction: "bullish",
			FromSwing: prevHigh.Price, ToSwing: lastHigh.Price,
			Price: lastClose, Timestamp: lastTS,
		}
	}

	return ms
}

func keepLastPivots(pivots []SwingPivot, n int) []SwingPivot {
	if len(pivots) <= n {
		if pivots == nil {
			return []SwingPivot{}
		}
		return pivots
	}
	return pivots[len(pivots)-n:]
}

// SRLevels is the nearest pivot-based support/resistance around price
type SRLevels struct {
	Support                float64 `json:"support"`
	Resistance             float64 `json:"resistance"`
	AtSupport              bool    `json:"atSupport"`
	AtResistance           bool    `json:"atResistance"`
	BrokeSupportOnClose    bool    `json:"brokeSupportOnClose"`
	BrokeResistanceOnClose bool    `json:"brokeResistanceOnClose"`
}

// FindSupportResistance returns the nearest pivot high above price and
// pivot low below it, with proximity and break-on-close flags. threshold
// is the at-level proximity as a fraction (default 0.005).
func FindSupportResistance(candles []marketdata.Candle, threshold float64) *SRLevels {
	const lookback = 3
	if len(candles) < lookback*2+2 {
		return nil
	}
	if threshold <= 0 {
		threshold = 0.005
	}

	price := candles[len(candles)-1].Close
	prevClose := candles[len(candles)-2].Close

	highs, lows := findPivots(candles, lookback)

	levels := &SRLevels{}
	nearestAbove := math.MaxFloat64
	for _, h := range highs {
		if h.Price > price && h.Price < nearestAbove {
			nearestAbove = h.Price
		}
	}
	nearestBelow := 0.0
	for _, l := range lows {
		if l.Price < price && l.Price > nearestBelow {
			nearestBelow = l.Price
		}
	}

	if nearestAbove != math.MaxFloat64 {
		levels.Resistance = nearestAbove
		levels.AtResistance = (nearestAbove-price)/price < threshold
		levels.BrokeResistanceOnClose = prevClose > nearestAbove
	}
	if nearestBelow > 0 {
		levels.Support = nearestBelow
		levels.AtSupport = (price-nearestBelow)/price < threshold
		levels.BrokeSupportOnClose = prevClose < nearestBelow
	}

	return levels
}

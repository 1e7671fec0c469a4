package analysis

import (
	"math"

	"crypto-signal-engine/internal/indicators"
)

// Bias directions
const (
	BiasLong    = "long"
	BiasShort   = "short"
	BiasNeutral = "neutral"
)

// HTFBias is the higher-timeframe directional read used by the scalping
// strategies and the AGGRESSIVE override path.
type HTFBias struct {
	Direction  string `json:"direction"`  // long, short, neutral
	Confidence int    `json:"confidence"` // 0-100
	Source     string `json:"source"`     // 4h, 1h, mixed, none
}

// ComputeHTFBias scores the 4h and 1h indicator records into a bias.
// The 4h trend weighs 2, the 1h trend 1, each stoch condition 0.5.
// Ties resolve to neutral.
func ComputeHTFBias(tf4h, tf1h *indicators.Record) HTFBias {
	var long4h, short4h, long1h, short1h float64

	if tf4h != nil {
		switch tf4h.Analysis.Trend {
		case indicators.TrendUp:
			long4h += 2
		case indicators.TrendDown:
			short4h += 2
		}
		l, s := stochContribution(tf4h.StochRSI, 0.5)
		long4h += l
		short4h += s
	}

	if tf1h != nil {
		switch tf1h.Analysis.Trend {
		case indicators.TrendUp:
			long1h += 1
		case indicators.TrendDown:
			short1h += 1
		}
		l, s := stochContribution(tf1h.StochRSI, 0.5)
		long1h += l
		short1h += s
	}

	longScore := long4h + long1h
	shortScore := short4h + short1h
	total := longScore + shortScore

	if total == 0 {
		return HTFBias{Direction: BiasNeutral, Source: "none"}
	}

	if longScore == shortScore {
		return HTFBias{
			Direction:  BiasNeutral,
			Confidence: 50,
			Source:     "mixed",
		}
	}

	direction := BiasLong
	winner := longScore
	winner4h, winner1h := long4h, long1h
	if shortScore > longScore {
		direction = BiasShort
		winner = shortScore
		winner4h, winner1h = short4h, short1h
	}

	source := "mixed"
	switch {
	case winner4h == 0 && winner1h > 0:
		source = "1h"
	case winner4h > winner1h:
		source = "4h"
	}

	return HTFBias{
		Direction:  direction,
		Confidence: int(math.Round(winner / total * 100)),
		Source:     source,
	}
}

// stochContribution maps a stoch condition onto the long/short scales.
// BULLISH and OVERSOLD lean long, BEARISH and OVERBOUGHT lean short.
func stochContribution(stoch *indicators.StochRSIInfo, weight float64) (long, short float64) {
	if stoch == nil {
		return 0, 0
	}
	switch stoch.Condition {
	case indicators.StochBullish, indicators.StochOversold:
		return weight, 0
	case indicators.StochBearish, indicators.StochOverbought:
		return 0, weight
	}
	return 0, 0
}

package features

import (
	"math"

	"crypto-signal-engine/internal/marketdata"
)

// LiquidityZone is a cluster of equal highs or equal lows
type LiquidityZone struct {
	Type  string  `json:"type"` // equal_highs or equal_lows
	Price float64 `json:"price"`
	Count int     `json:"count"`
}

// DetectLiquidityZones clusters pivot highs/lows that sit within tolerance
// of each other. Two or more equal extremes form a zone that tends to
// attract stop runs.
func DetectLiquidityZones(candles []marketdata.Candle) []LiquidityZone {
	zones := []LiquidityZone{}

	const lookback = 3
	const tolerance = 0.0015 // 0.15%
	if len(candles) < lookback*2+1 {
		return zones
	}

	highs, lows := findPivots(candles, lookback)

	zones = append(zones, clusterLevels(highs, "equal_highs", tolerance)...)
	zones = append(zones, clusterLevels(lows, "equal_lows", tolerance)...)
	return zones
}

func clusterLevels(pivots []SwingPivot, zoneType string, tolerance float64) []LiquidityZone {
	var zones []LiquidityZone
	used := make([]bool, len(pivots))

	for i := range pivots {
		if used[i] {
			continue
		}
		cluster := []float64{pivots[i].Price}
		used[i] = true

		for j := i + 1; j < len(pivots); j++ {
			if used[j] {
				continue
			}
			if math.Abs(pivots[j].Price-pivots[i].Price)/pivots[i].Price < tolerance {
				cluster = append(cluster, pivots[j].Price)
				used[j] = true
			}
		}

		if len(cluster) >= 2 {
			sum := 0.0
			for _, p := range cluster {
				sum += p
			}
			zones = append(zones, LiquidityZone{
				Type:  zoneType,
				Price: sum / float64(len(cluster)),
				Count: len(cluster),
			})
		}
	}
	return zones
}

// FairValueGap is a three-candle imbalance
type FairValueGap struct {
	Direction string  `json:"direction"` // bullish or bearish
	Top       float64 `json:"top"`
	Bottom    float64 `json:"bottom"`
	Filled    bool    `json:"filled"`
	Index     int     `json:"index"`
}

// DetectFairValueGaps scans for three-candle imbalances: a bullish FVG
// when candle i's high never overlaps candle i+2's low, bearish mirrored.
// Filled is set when any later candle traded back into the gap.
func DetectFairValueGaps(candles []marketdata.Candle) []FairValueGap {
	fvgs := []FairValueGap{}
	if len(candles) < 3 {
		return fvgs
	}

	for i := 0; i < len(candles)-2; i++ {
		c1 := candles[i]
		c3 := candles[i+2]

		if c1.High < c3.Low {
			fvg := FairValueGap{
				Direction: "bullish",
				Top:       c3.Low,
				Bottom:    c1.High,
				Index:     i,
			}
			for j := i + 3; j < len(candles); j++ {
				if candles[j].Low <= fvg.Top {
					fvg.Filled = true
					break
				}
			}
			fvgs = append(fvgs, fvg)
		}

		if c1.Low > c3.High {
			fvg := FairValueGap{
				Direction: "bearish",
				Top:       c1.Low,
				Bottom:    c3.High,
				Index:     i,
			}
			for j := i + 3; j < len(candles); j++ {
				if candles[j].High >= fvg.Bottom {
					fvg.Filled = true
					break
				}
			}
			fvgs = append(fvgs, fvg)
		}
	}

	return fvgs
}

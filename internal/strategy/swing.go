package strategy

import (
	"fmt"
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// EvaluateSwing runs the 3d/1d/4h swing setup: a higher-timeframe trend
// that has overextended away from the 3d 21 EMA and is retracing toward a
// reclaim level on the daily.
func EvaluateSwing(tfs *analysis.TimeframeSet, bias analysis.HTFBias) *Signal {
	rec3d := tfRecord(tfs, marketdata.Interval3d)
	rec1d := tfRecord(tfs, marketdata.Interval1d)
	rec4h := tfRecord(tfs, marketdata.Interval4h)

	conditions := []string{
		"3D trend directional or FLAT with aligned stoch",
		"3D pullback OVEREXTENDED or RETRACING",
		"1D trend directional or FLAT with aligned/oversold stoch",
		"1D pullback RETRACING or ENTRY_ZONE",
		"4H trend aligned with 3D",
	}

	if rec3d == nil || rec1d == nil || rec4h == nil ||
		ema21Of(rec3d) == nil || ema21Of(rec1d) == nil || ema21Of(rec4h) == nil {
		return NoTradeSignal(StrategySwing, SetupSwing,
			"Swing: missing 3D/1D/4H data", conditions)
	}

	price := priceOf(rec1d)

	for _, direction := range []string{DirectionLong, DirectionShort} {
		if sig := trySwingDirection(tfs, rec3d, rec1d, rec4h, price, direction); sig != nil {
			return sig
		}
	}

	return NoTradeSignal(StrategySwing, SetupSwing,
		"Swing: gatekeepers not met on 3D/1D/4H", conditions)
}

// swingStochLeans accepts a stoch that is aligned with the trade or sits
// at the exhausted extreme the trade would reverse from.
func swingStochLeans(stoch *indicators.StochRSIInfo, direction string) bool {
	if stoch == nil {
		return false
	}
	if stochAligned(stoch, direction) {
		return true
	}
	if direction == DirectionLong {
		return stoch.K < 25
	}
	return stoch.K > 75
}

func trySwingDirection(tfs *analysis.TimeframeSet, rec3d, rec1d, rec4h *indicators.Record, price float64, direction string) *Signal {
	trend3d := trendOf(rec3d)
	trend4h := trendOf(rec4h)
	stoch3d := stochOf(rec3d)
	stoch4h := stochOf(rec4h)

	// 3d must trend with the trade, or sit FLAT with the stoch leaning in
	htfOK := trendMatches(trend3d, direction) ||
		(trend3d == indicators.TrendFlat && stochAligned(stoch3d, direction))
	if !htfOK {
		return nil
	}

	if !pullbackIn(pullbackOf(rec3d), indicators.PullbackOverextended, indicators.PullbackRetracing) {
		return nil
	}

	// The daily must trend with the trade too. A FLAT 1d passes only when
	// its stoch leans in, same concession as the 3d and 4h.
	trend1d := trendOf(rec1d)
	if !trendMatches(trend1d, direction) &&
		!(trend1d == indicators.TrendFlat && swingStochLeans(stochOf(rec1d), direction)) {
		return nil
	}

	if !pullbackIn(pullbackOf(rec1d), indicators.PullbackRetracing, indicators.PullbackEntryZone) {
		return nil
	}

	ema1d := *ema21Of(rec1d)
	if ema1d <= 0 {
		return nil
	}
	ratio := price / ema1d * 100
	if direction == DirectionLong {
		if ratio < 90 || ratio > 102 {
			return nil
		}
	} else {
		if ratio < 98 || ratio > 110 {
			return nil
		}
	}

	ltfOK := trendMatches(trend4h, direction) ||
		(trend4h == indicators.TrendFlat && stochAligned(stoch4h, direction))
	if !ltfOK {
		return nil
	}
	if !pullbackIn(pullbackOf(rec4h), indicators.PullbackRetracing, indicators.PullbackEntryZone) {
		return nil
	}

	swings3d := swingsOf(tfs, marketdata.Interval3d)
	swings1d := swingsOf(tfs, marketdata.Interval1d)
	if swings3d == nil || swings1d == nil {
		return nil
	}

	var reclaimAnchor, stop float64
	if direction == DirectionLong {
		reclaimAnchor = swings1d.SwingLow
		stop = math.Min(swings3d.SwingLow, swings1d.SwingLow)
	} else {
		reclaimAnchor = swings1d.SwingHigh
		stop = math.Max(swings3d.SwingHigh, swings1d.SwingHigh)
	}
	if reclaimAnchor <= 0 || stop <= 0 {
		return nil
	}

	reclaim := (reclaimAnchor + ema1d) / 2
	zone := EntryZone{Min: reclaim * 0.995, Max: reclaim * 1.005}
	mid := zone.Mid()

	risk := mid - stop
	if direction == DirectionShort {
		risk = stop - mid
	}
	if risk <= 0 {
		return nil
	}

	targets := make([]float64, 0, 3)
	for _, rr := range []float64{3, 4, 5} {
		if direction == DirectionLong {
			targets = append(targets, mid+rr*risk)
		} else {
			targets = append(targets, mid-rr*risk)
		}
	}

	confidence := 70
	if stochAligned(stoch3d, direction) && swingStochLeans(stochOf(rec1d), direction) {
		confidence += 10
	}
	if pullbackOf(rec4h) == indicators.PullbackEntryZone {
		confidence += 5
	}
	if dist3d := distFrom21EMA(rec3d); dist3d != nil {
		abs := math.Abs(*dist3d)
		if abs >= 8 && abs <= 15 {
			confidence += 5
		}
	}
	if confidence > 90 {
		confidence = 90
	}

	return &Signal{
		Valid:             true,
		Direction:         direction,
		SetupType:         SetupSwing,
		SelectedStrategy:  StrategySwing,
		StrategiesChecked: []string{StrategySwing},
		Confidence:        confidence,
		EntryZone:         &zone,
		StopLoss:          floatPtr(stop),
		InvalidationLevel: floatPtr(stop),
		Targets:           targets,
		RiskReward:        RiskReward{TP1RR: floatPtr(3.0), TP2RR: floatPtr(4.0), TP3RR: floatPtr(5.0)},
		ReasonSummary: fmt.Sprintf("Swing %s: 3D %s overextension retracing to 1D reclaim %.2f",
			direction, trendOf(rec3d), reclaim),
		Confluence: Confluence{
			Notes: []string{
				fmt.Sprintf("3D trend %s, pullback %s", trendOf(rec3d), pullbackOf(rec3d)),
				fmt.Sprintf("1D pullback %s", pullbackOf(rec1d)),
				fmt.Sprintf("4H trend %s, pullback %s", trendOf(rec4h), pullbackOf(rec4h)),
			},
		},
		ConditionsRequired: []string{},
	}
}

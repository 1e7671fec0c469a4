package strategy

import (
	"fmt"
	"math"

	"crypto-signal-engine/internal/analysis"
	"crypto-signal-engine/internal/indicators"
	"crypto-signal-engine/internal/marketdata"
)

// EvaluateMicroScalp runs the tight 15m/5m confluence setup anchored on
// the 1h trend. The 4h is disregarded entirely.
func EvaluateMicroScalp(tfs *analysis.TimeframeSet) *Signal {
	rec1h := tfRecord(tfs, marketdata.Interval1h)
	rec15m := tfRecord(tfs, marketdata.Interval15m)
	rec5m := tfRecord(tfs, marketdata.Interval5m)

	conditions := []string{
		"1H trend non-FLAT with pullback ENTRY_ZONE or RETRACING",
		"15m and 5m price within 0.25% of their 21 EMAs",
		"15m and 5m pullback ENTRY_ZONE or RETRACING",
		"15m and 5m stochs oversold or bullish for long (mirror for short)",
	}

	if rec1h == nil || rec15m == nil || rec5m == nil ||
		ema21Of(rec15m) == nil || ema21Of(rec5m) == nil {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: missing 1H/15m/5m data", conditions)
	}

	trend1h := trendOf(rec1h)
	if trend1h == indicators.TrendFlat {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: 1H trend is FLAT", conditions)
	}
	if !pullbackIn(pullbackOf(rec1h), indicators.PullbackEntryZone, indicators.PullbackRetracing) {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: 1H pullback out of range", conditions)
	}

	direction := DirectionLong
	if trend1h == indicators.TrendDown {
		direction = DirectionShort
	}

	ema15m := *ema21Of(rec15m)
	ema5m := *ema21Of(rec5m)
	price15m := priceOf(rec15m)
	price5m := priceOf(rec5m)

	dist15m := distPct(price15m, ema15m)
	dist5m := distPct(price5m, ema5m)
	if dist15m > 0.25 || dist5m > 0.25 {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: price not tight to 15m/5m 21 EMAs", conditions)
	}

	if !pullbackIn(pullbackOf(rec15m), indicators.PullbackEntryZone, indicators.PullbackRetracing) ||
		!pullbackIn(pullbackOf(rec5m), indicators.PullbackEntryZone, indicators.PullbackRetracing) {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: 15m/5m pullback out of range", conditions)
	}

	stoch15m := stochOf(rec15m)
	stoch5m := stochOf(rec5m)
	if !microStochOK(stoch15m, direction) || !microStochOK(stoch5m, direction) {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: 15m/5m stochs not positioned for entry", conditions)
	}

	mid := (ema15m + ema5m) / 2
	zone := EntryZone{Min: mid * 0.999, Max: mid * 1.001}
	entryMid := zone.Mid()

	swings15m := swingsOf(tfs, marketdata.Interval15m)
	swings5m := swingsOf(tfs, marketdata.Interval5m)
	if swings15m == nil || swings5m == nil {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: missing 15m/5m swing structure", conditions)
	}

	var stop float64
	if direction == DirectionLong {
		stop = math.Min(swings15m.SwingLow, swings5m.SwingLow)
	} else {
		stop = math.Max(swings15m.SwingHigh, swings5m.SwingHigh)
	}

	risk := entryMid - stop
	if direction == DirectionShort {
		risk = stop - entryMid
	}
	if risk <= 0 {
		return NoTradeSignal(StrategyMicroScalp, SetupMicroScalp,
			"Micro scalp: stop on the wrong side of entry", conditions)
	}

	var targets []float64
	if direction == DirectionLong {
		targets = []float64{entryMid + risk, entryMid + 1.5*risk}
	} else {
		targets = []float64{entryMid - risk, entryMid - 1.5*risk}
	}

	confidence := 60
	maxDist := math.Max(dist15m, dist5m)
	if maxDist <= 0.1 {
		confidence += 10
	} else {
		confidence += 5
	}
	if microStochStrong(stoch15m, direction) && microStochStrong(stoch5m, direction) {
		confidence += 5
	}
	if confidence > 75 {
		confidence = 75
	}

	return &Signal{
		Valid:             true,
		Direction:         direction,
		SetupType:         SetupMicroScalp,
		SelectedStrategy:  StrategyMicroScalp,
		StrategiesChecked: []string{StrategyMicroScalp},
		Confidence:        confidence,
		EntryZone:         &zone,
		StopLoss:          floatPtr(stop),
		InvalidationLevel: floatPtr(stop),
		Targets:           targets,
		RiskReward:        RiskReward{TP1RR: floatPtr(1.0), TP2RR: floatPtr(1.5)},
		ReasonSummary: fmt.Sprintf("Micro scalp %s: 15m/5m tight to 21 EMAs around %.2f with 1H %s",
			direction, mid, trend1h),
		Confluence: Confluence{
			Notes: []string{
				fmt.Sprintf("15m within %.2f%% of 21 EMA", dist15m),
				fmt.Sprintf("5m within %.2f%% of 21 EMA", dist5m),
			},
		},
		ConditionsRequired: []string{},
	}
}

func distPct(price, level float64) float64 {
	if level == 0 {
		return math.MaxFloat64
	}
	return math.Abs(price-level) / level * 100
}

// microStochOK accepts an oversold reading or an early bullish one for
// longs; shorts mirror.
func microStochOK(stoch *indicators.StochRSIInfo, direction string) bool {
	if stoch == nil {
		return false
	}
	if direction == DirectionLong {
		return stoch.K < 25 || (stoch.K < 40 && stoch.K > stoch.D)
	}
	return stoch.K > 75 || (stoch.K > 60 && stoch.K < stoch.D)
}

func microStochStrong(stoch *indicators.StochRSIInfo, direction string) bool {
	if stoch == nil {
		return false
	}
	if direction == DirectionLong {
		return stoch.K < 25
	}
	return stoch.K > 75
}
